// Package provider defines the external keyword, competitor and content
// critique collaborators of an audit, and meters their usage.
//
// Providers return normalized result structs; adapters for a concrete
// service live outside this module. Every call made through Metered is
// charged to an injected UsageCounter, so quotas survive restarts when the
// counter is persistent (see database.UsageStore).
package provider
