// Package database provides SQLite-based storage for siteaudit.
//
// The AuditDB stores:
//   - Completed audit results, one JSON document per job
//   - The last known progress of every audit job
//   - Usage counters of metered external providers, per period
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file under the XDG data directory.
package database
