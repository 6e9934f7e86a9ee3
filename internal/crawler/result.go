package crawler

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/nao1215/gophermirror/internal/gopher"
)

// Resource statuses recorded per fetch attempt.
const (
	// StatusSaved means the resource was fetched and written to disk.
	StatusSaved = "saved"

	// StatusSkipped means the resource was fetched but the local file
	// already existed and clobbering is off.
	StatusSkipped = "skipped"

	// StatusFailed means the fetch or the write failed.
	StatusFailed = "failed"
)

// Resource is the record of one fetch attempt within a run.
type Resource struct {
	// URL is the gopher URL of the resource.
	URL string `json:"url"`

	// ItemType is the one-character item type, "1" for menus.
	ItemType string `json:"item_type"`

	// Size is the response size in bytes.
	Size int64 `json:"size"`

	// SHA256 is the hex-encoded hash of the response bytes.
	// Empty for failed fetches and empty responses.
	SHA256 string `json:"sha256,omitempty"`

	// SavedPath is the local path the bytes were written to.
	// Empty unless Status is "saved" or "skipped".
	SavedPath string `json:"saved_path,omitempty"`

	// Status is one of the Status* constants.
	Status string `json:"status"`
}

// Failure records one non-fatal per-locator error. Failures never stop
// the run; they are collected for the report.
type Failure struct {
	// URL is the gopher URL that could not be fetched or saved.
	URL string `json:"url"`

	// Reason is the error message.
	Reason string `json:"reason"`
}

// Result accumulates everything one mirror run produced. It is the
// value the report and database layers consume.
type Result struct {
	// StartURL is the gopher URL the crawl started from.
	StartURL string `json:"start_url"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Fetched counts successful fetches; MenusFetched and FilesFetched
	// split it by resource kind.
	Fetched      int `json:"fetched"`
	MenusFetched int `json:"menus_fetched"`
	FilesFetched int `json:"files_fetched"`

	// Saved counts files written; SkippedExisting counts files left in
	// place because clobbering is off.
	Saved           int `json:"saved"`
	SkippedExisting int `json:"skipped_existing"`

	// SkippedVisited counts locators dropped by the cycle check,
	// Filtered counts menu entries dropped by the type, host-scope, and
	// ascension filters.
	SkippedVisited int `json:"skipped_visited"`
	Filtered       int `json:"filtered"`

	// BytesFetched is the total response size across the run.
	BytesFetched int64 `json:"bytes_fetched"`

	// Resources lists every fetch attempt in traversal order.
	Resources []Resource `json:"resources,omitempty"`

	// Failures lists the non-fatal errors hit during the run.
	Failures []Failure `json:"failures,omitempty"`
}

// NewResult creates a Result for a crawl starting at the given locator.
func NewResult(start gopher.Locator) *Result {
	return &Result{
		StartURL:  start.String(),
		StartedAt: time.Now(),
	}
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run recorded any failures.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// addResource records one fetch attempt.
func (r *Result) addResource(loc gopher.Locator, itemType gopher.ItemType, data []byte, savedPath, status string) {
	res := Resource{
		URL:       loc.String(),
		ItemType:  itemType.String(),
		Size:      int64(len(data)),
		SavedPath: savedPath,
		Status:    status,
	}
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		res.SHA256 = hex.EncodeToString(sum[:])
	}
	r.Resources = append(r.Resources, res)
}

// addFailure records a non-fatal per-locator error.
func (r *Result) addFailure(loc gopher.Locator, err error) {
	r.Failures = append(r.Failures, Failure{
		URL:    loc.String(),
		Reason: err.Error(),
	})
}

// finish stamps the end of the run.
func (r *Result) finish() {
	r.FinishedAt = time.Now()
}
