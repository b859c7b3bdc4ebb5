// Package config provides configuration structures and utilities for
// siteaudit: crawl budgets and worker counts, report preferences, the
// per-site overrides of the .siteaudit file, and the Policy tunables used
// by duplicate detection, scoring and issue prioritization.
package config
