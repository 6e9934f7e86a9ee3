package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/gophermirror/internal/config"
	"github.com/nao1215/gophermirror/internal/gopher"
	"github.com/nao1215/gophermirror/internal/report"
)

// TestNewMirrorCmd tests mirror command construction and flag defaults.
func TestNewMirrorCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates mirror command with expected properties", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		if cmd == nil {
			t.Fatal("NewMirrorCmd returned nil")
		}
		if cmd.Use != "mirror [flags] URL..." {
			t.Errorf("unexpected Use: %q", cmd.Use)
		}
		if cmd.RunE == nil {
			t.Error("expected RunE to be set")
		}
	})

	t.Run("flag defaults match the config defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		tests := []struct {
			flag string
			want string
		}{
			{"recursive", "true"},
			{"depth", "100"},
			{"span-hosts", "false"},
			{"clobber", "false"},
			{"only-menus", "false"},
			{"no-menus", "false"},
			{"ascend-parent", "false"},
			{"delay", "1s"},
			{"timeout", "30s"},
			{"max-size", "33554432"},
			{"output", "mirror"},
			{"socks5", ""},
			{"json", "false"},
			{"markdown", "false"},
			{"report-file", ""},
			{"concurrency", "4"},
			{"no-db", "false"},
		}
		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Errorf("expected flag %q to exist", tt.flag)
				continue
			}
			if flag.DefValue != tt.want {
				t.Errorf("flag %q: expected default %q, got %q", tt.flag, tt.want, flag.DefValue)
			}
		}
	})
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults pass validation with one target", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("flag parsing failed: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"gopher://gopher.example.org/"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
		if !cfg.Recurse {
			t.Error("expected recursion on by default")
		}
		if !cfg.SaveToDB {
			t.Error("expected database saving on by default")
		}
		if cfg.HostConfigs == nil {
			t.Error("expected host configs to be initialized")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		args := []string{
			"--depth", "3",
			"--clobber",
			"--span-hosts",
			"--delay", "250ms",
			"--json",
			"--no-db",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("flag parsing failed: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"gopher.example.org"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		if cfg.MaxDepth != 3 {
			t.Errorf("expected depth 3, got %d", cfg.MaxDepth)
		}
		if !cfg.Clobber {
			t.Error("expected clobber on")
		}
		if !cfg.SpanHosts {
			t.Error("expected span-hosts on")
		}
		if cfg.Delay != 250*time.Millisecond {
			t.Errorf("expected delay 250ms, got %s", cfg.Delay)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report on")
		}
		if cfg.SaveToDB {
			t.Error("expected database saving off")
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewMirrorCmd()
		missing := filepath.Join(t.TempDir(), "no-such-file")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("flag parsing failed: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"gopher.example.org"}); err == nil {
			t.Error("expected an error for a missing explicit config file")
		}
	})

	t.Run("explicit config file is loaded", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "hosts.yml")
		yaml := `hosts:
  slow.example.org:
    delay: 5s
`
		if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatalf("flag parsing failed: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"gopher.example.org"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}
		hostCfg := cfg.HostConfigs.GetHostConfig("slow.example.org")
		if hostCfg.Delay != 5*time.Second {
			t.Errorf("expected 5s host delay, got %s", hostCfg.Delay)
		}
	})
}

// TestBuildJobs tests target URL parsing.
func TestBuildJobs(t *testing.T) {
	t.Parallel()

	t.Run("parses targets into jobs", func(t *testing.T) {
		t.Parallel()

		jobs, err := buildJobs([]string{
			"gopher://gopher.example.org/",
			"gopher://gopher.example.org:7070/0/about.txt",
			"bare.example.org",
		})
		if err != nil {
			t.Fatalf("buildJobs failed: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(jobs))
		}

		if jobs[0].Start.Host != "gopher.example.org" || jobs[0].Start.Port != 70 {
			t.Errorf("unexpected first locator: %+v", jobs[0].Start)
		}
		if jobs[1].Hint != gopher.TypeTextFile {
			t.Errorf("expected text file hint, got %q", jobs[1].Hint)
		}
		if jobs[1].Start.Selector != "/about.txt" {
			t.Errorf("expected selector '/about.txt', got %q", jobs[1].Start.Selector)
		}
		if jobs[2].Start.Host != "bare.example.org" {
			t.Errorf("unexpected bare host locator: %+v", jobs[2].Start)
		}
	})

	t.Run("rejects foreign schemes", func(t *testing.T) {
		t.Parallel()

		if _, err := buildJobs([]string{"https://example.org/"}); !errors.Is(err, gopher.ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})
}

// TestBuildDialer tests proxy dialer selection.
func TestBuildDialer(t *testing.T) {
	t.Parallel()

	t.Run("no proxy means direct connections", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		dialer, err := buildDialer(cfg)
		if err != nil {
			t.Fatalf("buildDialer failed: %v", err)
		}
		if dialer != nil {
			t.Error("expected nil dialer without a proxy")
		}
	})

	t.Run("proxy address yields a dialer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SOCKS5Proxy = "127.0.0.1:9050"
		dialer, err := buildDialer(cfg)
		if err != nil {
			t.Fatalf("buildDialer failed: %v", err)
		}
		if dialer == nil {
			t.Error("expected a SOCKS5 dialer")
		}
	})
}

// TestNewReportWriter tests report format selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the simple writer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		if _, ok := newReportWriter(cfg, os.Stdout).(*report.SimpleWriter); !ok {
			t.Error("expected a SimpleWriter")
		}
	})

	t.Run("json flag selects the JSON writer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		if _, ok := newReportWriter(cfg, os.Stdout).(*report.FullJSONWriter); !ok {
			t.Error("expected a FullJSONWriter")
		}
	})

	t.Run("markdown flag selects the Markdown writer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		if _, ok := newReportWriter(cfg, os.Stdout).(*report.MarkdownWriter); !ok {
			t.Error("expected a MarkdownWriter")
		}
	})
}

// TestOpenReportOutput tests report destination selection.
func TestOpenReportOutput(t *testing.T) {
	t.Parallel()

	t.Run("defaults to stdout", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		out, closeOut, err := openReportOutput(cfg)
		if err != nil {
			t.Fatalf("openReportOutput failed: %v", err)
		}
		defer closeOut()

		if out != os.Stdout {
			t.Error("expected stdout as the default destination")
		}
	})

	t.Run("creates the report file and its directories", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "run.json")

		out, closeOut, err := openReportOutput(cfg)
		if err != nil {
			t.Fatalf("openReportOutput failed: %v", err)
		}
		if out == nil {
			t.Fatal("expected a writer")
		}
		closeOut()

		if _, err := os.Stat(cfg.ReportFile); err != nil {
			t.Errorf("expected report file to exist: %v", err)
		}
	})
}
