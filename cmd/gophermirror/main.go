// Package main provides the entry point for the gophermirror CLI.
//
// gophermirror recursively downloads Gopher menus and files into a
// local directory tree, preserving the server's selector hierarchy.
//
// Usage:
//
//	gophermirror mirror gopher://example.org/
//	gophermirror history
//
// See --help for all available options.
package main

// main is the entry point for gophermirror.
func main() {
	Execute()
}
