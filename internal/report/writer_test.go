package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/gophermirror/internal/crawler"
	"github.com/nao1215/gophermirror/internal/gopher"
)

// sampleResult builds a finished run with one failure for writer tests.
func sampleResult() *crawler.Result {
	result := crawler.NewResult(gopher.NewLocator("gopher.example.org", "", 70))
	result.Fetched = 4
	result.MenusFetched = 1
	result.FilesFetched = 3
	result.Saved = 3
	result.SkippedExisting = 1
	result.BytesFetched = 10240
	result.FinishedAt = result.StartedAt.Add(3 * time.Second)
	result.Resources = []crawler.Resource{
		{URL: "gopher://gopher.example.org:70/", ItemType: "1", Size: 512, Status: crawler.StatusSaved},
		{URL: "gopher://gopher.example.org:70/a.txt", ItemType: "0", Size: 4096, Status: crawler.StatusSaved},
	}
	result.Failures = []crawler.Failure{
		{URL: "gopher://gopher.example.org:70/broken.txt", Reason: "connection refused"},
	}
	return result
}

// TestSimpleWriter tests the human-readable format.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header summary and failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		n, err := w.Write(sampleResult())
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"GOPHER MIRROR REPORT",
			"gopher://gopher.example.org:70/",
			"Fetched:           4 (1 menus, 3 files)",
			"Skipped existing:  1",
			"FAILURES",
			"connection refused",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("omits resources section by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if strings.Contains(buf.String(), "RESOURCES") {
			t.Error("resources section should be off by default")
		}
	})

	t.Run("lists resources when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowResources(true))
		if _, err := w.Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "/a.txt") {
			t.Error("expected resource listing in output")
		}
	})

	t.Run("clean run reports complete status", func(t *testing.T) {
		t.Parallel()

		result := sampleResult()
		result.Failures = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(result); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Status:     Complete") {
			t.Error("expected complete status for a clean run")
		}
	})
}

// TestJSONWriter tests the machine-readable format.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		var decoded crawler.Result
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Fetched != 4 {
			t.Errorf("expected fetched 4, got %d", decoded.Fetched)
		}
		if len(decoded.Failures) != 1 {
			t.Errorf("expected 1 failure, got %d", len(decoded.Failures))
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"") {
			t.Error("expected indented JSON output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		var wrapped JSONReport
		if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if wrapped.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %q", wrapped.Version)
		}
		if wrapped.Result == nil || wrapped.Result.Fetched != 4 {
			t.Error("wrapped result did not survive the round trip")
		}
	})
}

// TestMarkdownWriter tests the markdown format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and failure alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Gopher Mirror Report",
			"## Summary",
			"| Fetched",
			"## Failures",
			"connection refused",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("clean run has no failures section", func(t *testing.T) {
		t.Parallel()

		result := sampleResult()
		result.Failures = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if strings.Contains(buf.String(), "## Failures") {
			t.Error("failures section should be omitted for a clean run")
		}
	})
}

// errWriter always fails, for MultiWriter error propagation tests.
type errWriter struct{}

func (errWriter) Write(*crawler.Result) (int, error) {
	return 0, errors.New("sink failed")
}

// TestMultiWriter tests fan-out and error propagation.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all sinks", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		if _, err := mw.Write(sampleResult()); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output in both sinks")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(errWriter{}, NewSimpleWriter(&buf))
		if _, err := mw.Write(sampleResult()); err == nil {
			t.Fatal("expected an error from the failing sink")
		}
		if buf.Len() != 0 {
			t.Error("expected no output after the failing sink")
		}
	})
}
