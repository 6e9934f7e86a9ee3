// Package log provides logging for gophermirror, built on top of the
// standard slog package.
//
// This package extends slog to provide:
//   - Truncation of oversized attribute values (raw menus, selectors)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Truncation
//
// Crawl logging naturally carries server-controlled strings: selectors,
// display names, and sometimes raw response fragments. A single
// pathological menu line can be kilobytes long and make the log
// unreadable, so the TruncateHandler caps every string attribute at a
// fixed length before the record reaches the underlying handler.
//
// # Usage
//
//	// Create a logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("fetched",
//	    "url", "gopher://example.org/",
//	    "size", 1024,
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
