package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/gophermirror/internal/crawler"
	"github.com/nao1215/gophermirror/internal/database"
	"github.com/nao1215/gophermirror/internal/report"
)

// ErrNoResult is returned by steps that need a crawl result when the
// crawl step has not run or produced nothing.
var ErrNoResult = errors.New("no crawl result available")

// MirrorStep runs the crawl itself. It is always the first step of a
// mirror pipeline: every later step consumes the result it produces.
type MirrorStep struct {
	// spider performs the traversal.
	spider *crawler.Spider

	// logger for structured logging.
	logger *slog.Logger
}

// MirrorStepOption configures a MirrorStep.
type MirrorStepOption func(*MirrorStep)

// WithMirrorLogger sets a custom logger for the mirror step.
func WithMirrorLogger(logger *slog.Logger) MirrorStepOption {
	return func(s *MirrorStep) {
		s.logger = logger
	}
}

// NewMirrorStep creates a crawl step around a configured spider.
func NewMirrorStep(spider *crawler.Spider, opts ...MirrorStepOption) *MirrorStep {
	s := &MirrorStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *MirrorStep) Name() string {
	return "mirror"
}

// Do executes the crawl and stores the result on the job.
// A cancelled context is the only fatal error; per-resource failures
// are already recorded inside the result.
func (s *MirrorStep) Do(ctx context.Context, job *Job) error {
	result, err := s.spider.Mirror(ctx, job.Start, job.Hint)
	job.Result = result
	if err != nil {
		return err
	}

	s.logger.Info("mirror completed",
		"target", job.StartURL,
		"fetched", result.Fetched,
		"saved", result.Saved,
		"failures", len(result.Failures),
	)
	return nil
}

// ReportStep writes the run result through a report writer.
type ReportStep struct {
	// writer formats and emits the result.
	writer report.Writer

	// logger for structured logging.
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a report step around the given writer.
func NewReportStep(writer report.Writer, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		writer: writer,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report for the job's result.
func (s *ReportStep) Do(_ context.Context, job *Job) error {
	if job.Result == nil {
		return ErrNoResult
	}

	n, err := s.writer.Write(job.Result)
	if err != nil {
		return err
	}

	s.logger.Debug("report written", "target", job.StartURL, "bytes", n)
	return nil
}

// DatabaseStep persists the run result to the mirror database.
// A nil database turns the step into a no-op, which lets callers build
// the pipeline unconditionally.
type DatabaseStep struct {
	// db is the mirror history database, possibly nil.
	db *database.MirrorDB

	// logger for structured logging.
	logger *slog.Logger
}

// DatabaseStepOption configures a DatabaseStep.
type DatabaseStepOption func(*DatabaseStep)

// WithDatabaseLogger sets a custom logger for the database step.
func WithDatabaseLogger(logger *slog.Logger) DatabaseStepOption {
	return func(s *DatabaseStep) {
		s.logger = logger
	}
}

// NewDatabaseStep creates a database step. db may be nil.
func NewDatabaseStep(db *database.MirrorDB, opts ...DatabaseStepOption) *DatabaseStep {
	s := &DatabaseStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DatabaseStep) Name() string {
	return "database"
}

// Do saves the run to the database.
func (s *DatabaseStep) Do(ctx context.Context, job *Job) error {
	if s.db == nil {
		s.logger.Debug("database not configured, skipping persistence")
		return nil
	}
	if job.Result == nil {
		return ErrNoResult
	}

	runID, err := s.db.SaveRun(ctx, job.Result)
	if err != nil {
		return err
	}

	s.logger.Debug("run saved", "target", job.StartURL, "run_id", runID)
	return nil
}
