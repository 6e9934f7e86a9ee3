package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values follow common Gopher client conventions where applicable.
const (
	// DefaultTimeout is set to 30 seconds. Gopher servers tend to be
	// small machines on slow links, so a clearnet-style 10 second
	// timeout would produce false failures on real gopherholes.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth of 100 allows thorough mirroring of most
	// gopherholes while preventing infinite descent. Menu hierarchies
	// deeper than this are almost always generated, not curated.
	DefaultMaxDepth = 100

	// DefaultConcurrency of 4 concurrent mirrors balances throughput
	// with politeness when processing multiple targets. Each target is
	// still crawled with at most one open connection at a time.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "gophermirror"

	// DefaultDelay is the pause between consecutive requests within one
	// crawl. Gopher servers are often hobbyist hardware; one second is
	// conservative and respectful of server resources.
	DefaultDelay = 1 * time.Second

	// DefaultMaxResponseSize limits the maximum response size to read.
	// 32MB accommodates typical binaries served over Gopher while
	// preventing memory exhaustion from unbounded responses.
	DefaultMaxResponseSize = 32 * 1024 * 1024 // 32MB

	// DefaultOutputDir is the directory mirrored files are written
	// under when no output directory is given.
	DefaultOutputDir = "mirror"
)

// Config holds all configuration options for gophermirror.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Targets is the list of gopher URLs to mirror.
	// Must contain at least one URL or bare hostname.
	Targets []string

	// Recurse enables descending into submenus. When false, only the
	// starting resource is fetched regardless of MaxDepth.
	Recurse bool

	// MaxDepth is the maximum number of menu hops from the start.
	// Depth 0 means only fetch the starting resource.
	MaxDepth int

	// SpanHosts allows the crawl to follow menu entries that point at
	// hosts other than the starting host. Off by default so a mirror
	// stays on the gopherhole it was pointed at.
	SpanHosts bool

	// Clobber enables overwriting local files that already exist.
	// When false (default), existing files are left untouched, which
	// makes interrupted mirrors resumable.
	Clobber bool

	// OnlyMenus restricts recursion to submenu entries; no leaf files
	// are fetched. Mutually exclusive with NoMenus.
	OnlyMenus bool

	// NoMenus restricts recursion to leaf entries; submenus are not
	// descended into. Mutually exclusive with OnlyMenus.
	NoMenus bool

	// AllowAscent permits following menu entries whose selector points
	// above the menu that listed them. Off by default so a crafted menu
	// cannot walk the crawl up the server's directory tree.
	AllowAscent bool

	// Delay is the pause between consecutive requests within one crawl.
	// It never applies before the first request.
	Delay time.Duration

	// Timeout is the connection and I/O timeout for each request.
	Timeout time.Duration

	// MaxResponseSize is the maximum response size in bytes to read.
	// Responses larger than this fail the fetch. Set to 0 to use the
	// default (32MB).
	MaxResponseSize int64

	// OutputDir is the local directory the mirror tree is written under.
	OutputDir string

	// SOCKS5Proxy is an optional "host:port" SOCKS5 proxy address.
	// When set, all connections are dialed through the proxy, which
	// also allows mirroring onion gopherholes through Tor.
	SOCKS5Proxy string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .gophermirror in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// HostConfigs holds per-host overrides loaded from the config file.
	// This is populated by LoadConfigFile and consulted per target.
	HostConfigs *File

	// DBDir is the directory path for storing the SQLite database.
	// When set, run results are saved for the history subcommand.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save run results to the database.
	SaveToDB bool

	// Concurrency is the number of targets mirrored in parallel when
	// multiple targets are given. Within one target the crawl is
	// always sequential.
	Concurrency int
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Recurse:         true,
		MaxDepth:        DefaultMaxDepth,
		Delay:           DefaultDelay,
		Timeout:         DefaultTimeout,
		MaxResponseSize: DefaultMaxResponseSize,
		OutputDir:       DefaultOutputDir,
		Concurrency:     DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for gophermirror.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/gophermirror
// On macOS: ~/Library/Application Support/gophermirror
// On Windows: %LOCALAPPDATA%\gophermirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for gophermirror.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/gophermirror
// On macOS: ~/Library/Application Support/gophermirror
// On Windows: %APPDATA%\gophermirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to mirror
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Depth must be non-negative; 0 legitimately means "start only"
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	// Concurrency must be positive; zero would mean no mirroring
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// OnlyMenus and NoMenus contradict each other
	if c.OnlyMenus && c.NoMenus {
		return ErrConflictingTypeFilters
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// Delay must be non-negative
	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	// MaxResponseSize must be non-negative; 0 means use the default
	if c.MaxResponseSize < 0 {
		return ErrInvalidMaxResponseSize
	}

	return nil
}
