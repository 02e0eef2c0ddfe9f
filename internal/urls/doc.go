// Package urls holds the documentation links shown by btscan.
//
// Keeping them in one place lets troubleshooting output and help text
// point at the same pages.
package urls
