// Package config provides configuration structures and utilities for
// gophermirror. It defines the crawl options (depth, scope, delays, type
// filters), persistence settings, and report generation preferences.
package config
