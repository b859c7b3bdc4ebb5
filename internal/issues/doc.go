// Package issues groups per-page issues by root cause and ranks the groups.
//
// Issues are keyed by a signature made of the issue type and its message
// template, so the same template defect on fifty pages becomes one group
// with fifty affected pages. A group's priority is
//
//	severity_weight * category_importance * (1 + ln(1 + affected_pages))
//
// The logarithm keeps widespread issues on top without letting page count
// drown out severity. Each group is labelled with an improvement context
// derived from the roles of the pages it affects.
package issues
