package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/gophermirror/internal/config"
	"github.com/nao1215/gophermirror/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [URL]",
		Short: "Show past mirror runs recorded in the local database",
		Long: `History lists mirror runs saved by previous invocations of the mirror
command. Give a start URL to restrict the listing to that gopherhole,
or --run-id to show every resource fetched during one run.`,
		Example: `  gophermirror history
  gophermirror history gopher://gopher.example.org/
  gophermirror history --run-id 3
  gophermirror history --list-urls`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().BoolP("list-urls", "L", false, "List all mirrored start URLs")
	cmd.Flags().Int64P("run-id", "i", 0, "Show the fetch records of one run")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	return cmd
}

// runHistory executes the history command.
func runHistory(cmd *cobra.Command, args []string) error {
	listURLs, err := cmd.Flags().GetBool("list-urls")
	if err != nil {
		return fmt.Errorf("failed to get list-urls flag: %w", err)
	}
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return fmt.Errorf("failed to get run-id flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}

	// The database is created by the mirror command; history only reads.
	mdb, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no mirror history found (run 'gophermirror mirror' first): %w", err)
	}
	defer mdb.Close() //nolint:errcheck // Read-only access

	switch {
	case listURLs:
		return printMirroredURLs(cmd, mdb, asJSON)
	case runID > 0:
		return printRunDetail(cmd, mdb, runID, asJSON)
	default:
		startURL := ""
		if len(args) == 1 {
			startURL = args[0]
		}
		return printRuns(cmd, mdb, startURL, asJSON)
	}
}

// printMirroredURLs lists the distinct start URLs in the database.
func printMirroredURLs(cmd *cobra.Command, mdb *database.MirrorDB, asJSON bool) error {
	urls, err := mdb.ListMirroredURLs(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd, urls)
	}

	if len(urls) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No mirrored URLs recorded.")
		return nil
	}
	for _, url := range urls {
		fmt.Fprintln(cmd.OutOrStdout(), url)
	}
	return nil
}

// printRuns lists stored runs, newest first.
func printRuns(cmd *cobra.Command, mdb *database.MirrorDB, startURL string, asJSON bool) error {
	runs, err := mdb.ListRuns(cmd.Context(), startURL)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-20s %-9s %-7s %-7s %-8s %s\n",
		"ID", "STARTED", "DURATION", "FETCHED", "SAVED", "FAILURES", "START URL")
	for _, run := range runs {
		duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Second)
		fmt.Fprintf(out, "%-5d %-20s %-9s %-7d %-7d %-8d %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			run.Fetched,
			run.Saved,
			run.Failures,
			run.StartURL,
		)
	}
	return nil
}

// printRunDetail shows one run and every resource it fetched.
func printRunDetail(cmd *cobra.Command, mdb *database.MirrorDB, runID int64, asJSON bool) error {
	run, err := mdb.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	fetches, err := mdb.ListFetches(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd, struct {
			Run     *database.RunRecord    `json:"run"`
			Fetches []database.FetchRecord `json:"fetches"`
		}{Run: run, Fetches: fetches})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %d: %s\n", run.ID, run.StartURL)
	fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	fmt.Fprintf(out, "  Fetched:  %d (%d menus, %d files), %d saved, %d failed\n",
		run.Fetched, run.MenusFetched, run.FilesFetched, run.Saved, run.Failures)
	fmt.Fprintf(out, "  Bytes:    %d\n", run.BytesFetched)
	fmt.Fprintln(out)

	if len(fetches) == 0 {
		fmt.Fprintln(out, "No fetch records for this run.")
		return nil
	}

	fmt.Fprintf(out, "%-7s %-4s %-10s %s\n", "STATUS", "TYPE", "SIZE", "URL")
	for _, fetch := range fetches {
		fmt.Fprintf(out, "%-7s %-4s %-10d %s\n",
			strings.ToUpper(fetch.Status), fetch.ItemType, fetch.Size, fetch.URL)
	}
	return nil
}

// writeJSON renders any value as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
