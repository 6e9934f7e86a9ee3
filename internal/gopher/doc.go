// Package gopher contains the wire-level types for the Gopher protocol:
// item types, resource locators, and the menu (directory listing) parser.
// Everything in this package is a pure value type or a pure function;
// network and filesystem concerns live in other packages.
package gopher
