// Package audit runs audit jobs and exposes their progress and results.
//
// A Service starts one pipeline per job. Jobs started with StartAudit run
// in the background and are identified by a UUID; Run audits a site
// synchronously. Finished results are kept in memory and, when a Store is
// configured, persisted so that they outlive the process.
package audit
