package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no gopher URL is specified.
	ErrNoTarget = errors.New("no target specified: provide a gopher URL or hostname")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate connection failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	// Depth 0 is valid and means only the starting resource is fetched.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// Zero concurrency would mean no targets are processed at all.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingTypeFilters is returned when both --only-menus and
	// --no-menus are specified. The two filters contradict each other.
	ErrConflictingTypeFilters = errors.New("conflicting type filters: --only-menus and --no-menus cannot be used together")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDelay is returned when the inter-request delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxResponseSize is returned when the max response size is
	// negative. Use 0 to fall back to the default limit.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be non-negative")
)
