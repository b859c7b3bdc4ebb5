// Package main provides the entry point for the siteaudit CLI.
//
// siteaudit crawls a website, scores every page for SEO quality and
// groups the problems it finds into a prioritized fix list.
//
// Usage:
//
//	siteaudit audit <url>
//	siteaudit audit --list <file>
//	siteaudit history <url>
//
// See --help for all available options.
package main

// main is the entry point for siteaudit.
func main() {
	Execute()
}
