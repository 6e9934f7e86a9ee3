package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/net/proxy"

	"github.com/nao1215/gophermirror/internal/config"
	"github.com/nao1215/gophermirror/internal/crawler"
	"github.com/nao1215/gophermirror/internal/database"
	"github.com/nao1215/gophermirror/internal/gopher"
	"github.com/nao1215/gophermirror/internal/log"
	"github.com/nao1215/gophermirror/internal/pipeline"
	"github.com/nao1215/gophermirror/internal/protocol"
	"github.com/nao1215/gophermirror/internal/report"
	"github.com/nao1215/gophermirror/internal/storage"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [flags] URL...",
		Short: "Mirror one or more Gopher servers to a local directory",
		Long: `Mirror downloads a Gopher subtree into a local directory that mirrors
the server's selector hierarchy. Menus are saved as "gophermap" files;
everything else keeps its selector's base name.

Targets are gopher URLs (gopher://host[:port][/T/selector]) or bare
hostnames. The crawl stays on the starting host and never ascends above
the starting selector unless told otherwise.`,
		Example: `  gophermirror mirror gopher://gopher.example.org/
  gophermirror mirror --depth 3 --clobber gopher.example.org
  gophermirror mirror --socks5 127.0.0.1:9050 gopher://example.onion/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMirror,
	}

	defaults := config.NewConfig()
	cmd.Flags().BoolP("recursive", "r", defaults.Recurse, "Descend into submenus")
	cmd.Flags().IntP("depth", "d", defaults.MaxDepth, "Maximum number of menu hops from the start")
	cmd.Flags().Bool("span-hosts", false, "Follow menu entries that point at other hosts")
	cmd.Flags().Bool("clobber", false, "Overwrite local files that already exist")
	cmd.Flags().Bool("only-menus", false, "Fetch only submenus, no leaf files")
	cmd.Flags().Bool("no-menus", false, "Fetch only leaf files, do not descend into submenus")
	cmd.Flags().Bool("ascend-parent", false, "Allow entries that point above the menu that listed them")
	cmd.Flags().DurationP("delay", "w", defaults.Delay, "Pause between consecutive requests")
	cmd.Flags().DurationP("timeout", "t", defaults.Timeout, "Connection and I/O timeout per request")
	cmd.Flags().Int64("max-size", defaults.MaxResponseSize, "Maximum response size in bytes")
	cmd.Flags().StringP("output", "O", defaults.OutputDir, "Directory the mirror tree is written under")
	cmd.Flags().String("socks5", "", "SOCKS5 proxy address (host:port) for all connections")
	cmd.Flags().BoolP("json", "j", false, "Output report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output report in Markdown format")
	cmd.Flags().StringP("report-file", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringP("config", "c", "", "Path to configuration file (default: .gophermirror in cwd or home)")
	cmd.Flags().IntP("concurrency", "b", defaults.Concurrency, "Number of targets mirrored in parallel")
	cmd.Flags().Bool("no-db", false, "Do not record the run in the history database")

	return cmd
}

// runMirror executes the mirror command.
func runMirror(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)

	// Cancel the crawl on Ctrl-C or SIGTERM so a partial mirror is still
	// left in a resumable state.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("interrupted, stopping crawl", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	var mdb *database.MirrorDB
	if cfg.SaveToDB {
		mdb, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			// History is a convenience; the mirror itself must not fail
			// because the data directory is unusable.
			logger.Warn("history database unavailable", "error", err)
			mdb = nil
		} else {
			defer mdb.Close() //nolint:errcheck // Close on exit
		}
	}

	jobs, err := buildJobs(cfg.Targets)
	if err != nil {
		return err
	}

	dialer, err := buildDialer(cfg)
	if err != nil {
		return err
	}

	out, closeOut, err := openReportOutput(cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := newReportWriter(cfg, out)

	if len(jobs) == 1 || cfg.Concurrency == 1 {
		return runSequentialMirror(ctx, cfg, jobs, dialer, mdb, writer, logger)
	}
	return runBatchMirror(ctx, cfg, jobs, dialer, mdb, writer, logger)
}

// buildConfig creates a Config from command line flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Targets = args

	var err error
	if cfg.Recurse, err = cmd.Flags().GetBool("recursive"); err != nil {
		return nil, fmt.Errorf("failed to get recursive flag: %w", err)
	}
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, fmt.Errorf("failed to get depth flag: %w", err)
	}
	if cfg.SpanHosts, err = cmd.Flags().GetBool("span-hosts"); err != nil {
		return nil, fmt.Errorf("failed to get span-hosts flag: %w", err)
	}
	if cfg.Clobber, err = cmd.Flags().GetBool("clobber"); err != nil {
		return nil, fmt.Errorf("failed to get clobber flag: %w", err)
	}
	if cfg.OnlyMenus, err = cmd.Flags().GetBool("only-menus"); err != nil {
		return nil, fmt.Errorf("failed to get only-menus flag: %w", err)
	}
	if cfg.NoMenus, err = cmd.Flags().GetBool("no-menus"); err != nil {
		return nil, fmt.Errorf("failed to get no-menus flag: %w", err)
	}
	if cfg.AllowAscent, err = cmd.Flags().GetBool("ascend-parent"); err != nil {
		return nil, fmt.Errorf("failed to get ascend-parent flag: %w", err)
	}
	if cfg.Delay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, fmt.Errorf("failed to get delay flag: %w", err)
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, fmt.Errorf("failed to get timeout flag: %w", err)
	}
	if cfg.MaxResponseSize, err = cmd.Flags().GetInt64("max-size"); err != nil {
		return nil, fmt.Errorf("failed to get max-size flag: %w", err)
	}
	if cfg.OutputDir, err = cmd.Flags().GetString("output"); err != nil {
		return nil, fmt.Errorf("failed to get output flag: %w", err)
	}
	if cfg.SOCKS5Proxy, err = cmd.Flags().GetString("socks5"); err != nil {
		return nil, fmt.Errorf("failed to get socks5 flag: %w", err)
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, fmt.Errorf("failed to get json flag: %w", err)
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, fmt.Errorf("failed to get markdown flag: %w", err)
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return nil, fmt.Errorf("failed to get report-file flag: %w", err)
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, fmt.Errorf("failed to get concurrency flag: %w", err)
	}
	cfg.Verbose = getVerboseFlag(cmd)

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-db flag: %w", err)
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	if err := loadHostConfigs(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadHostConfigs resolves and loads the per-host configuration file.
// An explicitly named file that is missing is an error; an absent
// default file just means no overrides.
func loadHostConfigs(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("config file not found: %s", cfg.ConfigFilePath)
		}
		cfg.HostConfigs = &config.File{Hosts: make(map[string]config.HostConfig)}
		return nil
	}

	hostConfigs, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.HostConfigs = hostConfigs
	return nil
}

// getVerboseFlag reads the persistent verbose flag, tolerating commands
// constructed without a root (as in tests).
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// buildJobs parses each target URL into a pipeline job.
func buildJobs(targets []string) ([]*pipeline.Job, error) {
	jobs := make([]*pipeline.Job, 0, len(targets))
	for _, target := range targets {
		loc, hint, err := gopher.ParseURL(target)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", target, err)
		}
		jobs = append(jobs, &pipeline.Job{
			StartURL: target,
			Start:    loc,
			Hint:     hint,
		})
	}
	return jobs, nil
}

// buildDialer returns the dialer for outbound connections, routed
// through a SOCKS5 proxy when one is configured. A nil dialer means
// direct connections.
func buildDialer(cfg *config.Config) (proxy.Dialer, error) {
	if cfg.SOCKS5Proxy == "" {
		return nil, nil
	}
	return protocol.NewSOCKS5Dialer(cfg.SOCKS5Proxy)
}

// newSpiderForJob assembles the transport, storage, and crawler for one
// target, applying any per-host overrides from the configuration file.
func newSpiderForJob(cfg *config.Config, job *pipeline.Job, dialer proxy.Dialer, logger *slog.Logger) *crawler.Spider {
	merged := cfg
	if cfg.HostConfigs != nil {
		hostCfg := cfg.HostConfigs.GetHostConfig(job.Start.Host)
		merged = hostCfg.Apply(cfg)
	}

	transportOpts := []protocol.Option{
		protocol.WithTimeout(merged.Timeout),
		protocol.WithMaxResponseSize(merged.MaxResponseSize),
	}
	if dialer != nil {
		transportOpts = append(transportOpts, protocol.WithDialer(dialer))
	}
	transport := protocol.NewTransport(transportOpts...)

	store := storage.NewWriter(merged.OutputDir, storage.WithClobber(merged.Clobber))

	typeFilter := crawler.FetchAll
	switch {
	case merged.OnlyMenus:
		typeFilter = crawler.FetchMenusOnly
	case merged.NoMenus:
		typeFilter = crawler.FetchFilesOnly
	}

	return crawler.NewSpider(transport, store,
		crawler.WithRecursion(merged.Recurse),
		crawler.WithMaxDepth(merged.MaxDepth),
		crawler.WithSpanHosts(merged.SpanHosts),
		crawler.WithTypeFilter(typeFilter),
		crawler.WithAllowAscent(merged.AllowAscent),
		crawler.WithDelay(merged.Delay),
		crawler.WithLogger(logger),
	)
}

// newMirrorPipeline builds the crawl and persistence steps for one
// target. Reporting is attached by the caller.
func newMirrorPipeline(cfg *config.Config, job *pipeline.Job, dialer proxy.Dialer, mdb *database.MirrorDB, logger *slog.Logger) *pipeline.Pipeline {
	spider := newSpiderForJob(cfg, job, dialer, logger)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewMirrorStep(spider))
	p.AddStep(pipeline.NewDatabaseStep(mdb))
	return p
}

// runSequentialMirror mirrors targets one at a time, emitting each
// report as its crawl finishes.
func runSequentialMirror(
	ctx context.Context,
	cfg *config.Config,
	jobs []*pipeline.Job,
	dialer proxy.Dialer,
	mdb *database.MirrorDB,
	writer report.Writer,
	logger *slog.Logger,
) error {
	for _, job := range jobs {
		p := newMirrorPipeline(cfg, job, dialer, mdb, logger)
		p.AddStep(pipeline.NewReportStep(writer))

		if err := p.Execute(ctx, job); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("mirror failed", "url", job.StartURL, "error", err)
		}
	}
	return nil
}

// runBatchMirror mirrors targets concurrently, then emits reports in
// the order the targets were given so concurrent crawls never
// interleave their output.
func runBatchMirror(
	ctx context.Context,
	cfg *config.Config,
	jobs []*pipeline.Job,
	dialer proxy.Dialer,
	mdb *database.MirrorDB,
	writer report.Writer,
	logger *slog.Logger,
) error {
	factory := func(job *pipeline.Job) *pipeline.Pipeline {
		return newMirrorPipeline(cfg, job, dialer, mdb, logger)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	results, err := bp.ProcessBatch(ctx, jobs)
	if err != nil {
		return err
	}

	for _, job := range results {
		if job.Result == nil {
			continue
		}
		if _, err := writer.Write(job.Result); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", job.StartURL, err)
		}
	}
	return nil
}

// newReportWriter selects the report format from the configuration.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}

// openReportOutput returns the report destination: the configured file,
// or stdout. The returned closer is a no-op for stdout.
func openReportOutput(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return os.Stdout, func() {}, nil
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report file: %w", err)
	}
	closer := func() {
		f.Close() //nolint:errcheck // Best-effort close on exit
	}
	return f, closer, nil
}
