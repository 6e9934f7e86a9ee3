// Package storage maps Gopher locators onto local filesystem paths and
// persists fetched resources. The mapping is a pure function of the
// locator and the menu flag, so a re-run of the same crawl lands every
// resource in the same place.
package storage
