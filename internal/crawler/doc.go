// Package crawler implements the recursive traversal of a Gopher
// subtree: it decides which menu entries to fetch, how deep to go, and
// when to stop, while keeping a visited set so cyclic menus terminate.
// One crawl is strictly sequential with at most one open connection.
package crawler
