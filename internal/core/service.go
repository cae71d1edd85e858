package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/logging"
	"github.com/JonMunkholm/tabdiff/internal/mapping"
	"github.com/JonMunkholm/tabdiff/internal/schema"
	"github.com/JonMunkholm/tabdiff/internal/source"
	"github.com/JonMunkholm/tabdiff/internal/store"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

var (
	ErrNoFile          = errors.New("no file provided")
	ErrEmptyFile       = errors.New("empty file")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidMapping  = errors.New("invalid field mapping")
	ErrMappingNotFound = errors.New("field mapping not found")
	ErrJobNotFound     = errors.New("comparison not found")
	ErrTaskNotFound    = errors.New("scheduled task not found")
	ErrInvalidTask     = errors.New("invalid scheduled task")
)

// DefaultComparisonTimeout bounds loading and comparing one pair of files.
const DefaultComparisonTimeout = 5 * time.Minute

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxConcurrent   int           // parallel comparisons
	MaxWait         time.Duration // wait for a comparison slot
	Timeout         time.Duration // per comparison
	TaskConcurrency int           // scheduled tasks run in parallel per check
	Fetcher         *source.Fetcher
	LoadOptions     []table.LoadOption
}

// Service ties the loader, the matching and comparison engines, and the
// stores together. It is safe for concurrent use.
type Service struct {
	store    store.Store
	limiter  *ComparisonLimiter
	fetcher  *source.Fetcher
	loadOpts []table.LoadOption
	timeout  time.Duration
	taskConc int
	now      func() time.Time
}

// NewService creates a Service over st.
func NewService(st store.Store, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultComparisonTimeout
	}
	if opts.TaskConcurrency <= 0 {
		opts.TaskConcurrency = 2
	}
	if opts.Fetcher == nil {
		opts.Fetcher = source.New()
	}
	return &Service{
		store:    st,
		limiter:  NewComparisonLimiter(opts.MaxConcurrent, opts.MaxWait),
		fetcher:  opts.Fetcher,
		loadOpts: opts.LoadOptions,
		timeout:  opts.Timeout,
		taskConc: opts.TaskConcurrency,
		now:      time.Now,
	}
}

// Limiter exposes the comparison limiter for status reporting and shutdown.
func (s *Service) Limiter() *ComparisonLimiter {
	return s.limiter
}

// Input names one side of a comparison. URI is a local path or s3://bucket/key;
// Name is what history shows and defaults to the URI's base name.
type Input struct {
	URI  string
	Name string
}

// Local is shorthand for an Input read from a local path.
func Local(path string) Input {
	return Input{URI: path}
}

func (in Input) displayName() string {
	if in.Name != "" {
		return in.Name
	}
	return filepath.Base(in.URI)
}

// loadTable fetches and parses one input. Temporary downloads are removed
// before returning; local files are never touched.
func (s *Service) loadTable(ctx context.Context, in Input) (*table.Table, error) {
	if strings.TrimSpace(in.URI) == "" {
		return nil, ErrNoFile
	}

	path, cleanup, err := s.fetcher.Fetch(ctx, in.URI)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	t, err := table.Load(path, s.loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", in.displayName(), err)
	}
	return t, nil
}

// loadPair loads both inputs concurrently.
func (s *Service) loadPair(ctx context.Context, in1, in2 Input) (*table.Table, *table.Table, error) {
	var t1, t2 *table.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.loadTable(gctx, in1)
		if err != nil {
			return fmt.Errorf("file 1: %w", err)
		}
		t1 = t
		return nil
	})
	g.Go(func() error {
		t, err := s.loadTable(gctx, in2)
		if err != nil {
			return fmt.Errorf("file 2: %w", err)
		}
		t2 = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return t1, t2, nil
}

// FileSummary describes one loaded file.
type FileSummary struct {
	Name    string                         `json:"name"`
	Rows    int                            `json:"rows"`
	Columns []string                       `json:"columns"`
	Types   map[string]schema.SemanticType `json:"types"`
}

func summarize(name string, t *table.Table, p *schema.Profile) FileSummary {
	return FileSummary{
		Name:    name,
		Rows:    t.RowCount(),
		Columns: p.Columns(),
		Types:   p.Types(),
	}
}

// Detect loads one file and classifies its columns.
func (s *Service) Detect(ctx context.Context, in Input) (FileSummary, error) {
	t, err := s.loadTable(ctx, in)
	if err != nil {
		return FileSummary{}, err
	}
	return summarize(in.displayName(), t, schema.NewProfile(t)), nil
}

// SuggestResult holds both file summaries and the proposed column pairs.
type SuggestResult struct {
	File1       FileSummary          `json:"file1"`
	File2       FileSummary          `json:"file2"`
	Suggestions []mapping.Suggestion `json:"suggestions"`
}

// SuggestMappings proposes column pairs between two files.
func (s *Service) SuggestMappings(ctx context.Context, in1, in2 Input) (*SuggestResult, error) {
	t1, t2, err := s.loadPair(ctx, in1, in2)
	if err != nil {
		return nil, err
	}

	p1, p2 := schema.NewProfile(t1), schema.NewProfile(t2)
	suggestions := mapping.SuggestProfiles(p1, p2)
	if suggestions == nil {
		suggestions = []mapping.Suggestion{}
	}

	logging.FromContext(ctx).Info("suggested mappings",
		"file1", in1.displayName(),
		"file2", in2.displayName(),
		"suggestions", len(suggestions),
	)

	return &SuggestResult{
		File1:       summarize(in1.displayName(), t1, p1),
		File2:       summarize(in2.displayName(), t2, p2),
		Suggestions: suggestions,
	}, nil
}

// ResolveFields finds, for each field type, the matching column in both
// files using the current catalog.
func (s *Service) ResolveFields(ctx context.Context, in1, in2 Input, fieldTypes []string) ([]compare.FieldPair, error) {
	fieldTypes = cleanFieldTypes(fieldTypes)
	if len(fieldTypes) == 0 {
		return nil, fmt.Errorf("%w: no field types given", ErrInvalidMapping)
	}

	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	t1, t2, err := s.loadPair(ctx, in1, in2)
	if err != nil {
		return nil, err
	}
	return resolvePairs(t1, t2, cat, fieldTypes)
}

func resolvePairs(t1, t2 *table.Table, cat *schema.Catalog, fieldTypes []string) ([]compare.FieldPair, error) {
	pairs := make([]compare.FieldPair, 0, len(fieldTypes))
	for _, ft := range fieldTypes {
		c1, err := mapping.Resolve(t1, ft, cat)
		if err != nil {
			return nil, fmt.Errorf("file 1: %w", err)
		}
		c2, err := mapping.Resolve(t2, ft, cat)
		if err != nil {
			return nil, fmt.Errorf("file 2: %w", err)
		}
		pairs = append(pairs, compare.FieldPair{Label: ft, Column1: c1, Column2: c2})
	}
	return pairs, nil
}

func cleanFieldTypes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ft := range in {
		if ft = strings.TrimSpace(ft); ft != "" {
			out = append(out, ft)
		}
	}
	return out
}

// CompareRequest describes one comparison. Either Fields or FieldTypes must
// be set; FieldTypes are resolved against the catalog after loading.
type CompareRequest struct {
	File1      Input
	File2      Input
	Fields     []compare.FieldPair
	FieldTypes []string
	TaskID     *uuid.UUID
}

// Compare runs one comparison and records it as a job that moves from
// pending to completed or failed.
//
// When loading or resolution fails after the job was recorded, both the
// failed job and the error are returned.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*store.ComparisonJob, error) {
	fields, err := normalizeFields(req.Fields)
	if err != nil {
		return nil, err
	}
	fieldTypes := cleanFieldTypes(req.FieldTypes)
	if len(fields) == 0 && len(fieldTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one field mapping is required", ErrInvalidMapping)
	}

	var cat *schema.Catalog
	if len(fields) == 0 {
		if cat, err = s.Catalog(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	job := store.ComparisonJob{
		ID:        uuid.New(),
		File1:     req.File1.displayName(),
		File2:     req.File2.displayName(),
		Fields:    fields,
		Status:    store.JobPending,
		TaskID:    req.TaskID,
		CreatedAt: s.now(),
	}
	if job.Fields == nil {
		job.Fields = []compare.FieldPair{}
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	log := logging.WithFields(ctx, "job_id", job.ID, "file1", job.File1, "file2", job.File2)
	if ip := ClientIPFromContext(ctx); ip != "" {
		log = log.With("client_ip", ip)
	}
	if ua := UserAgentFromContext(ctx); ua != "" {
		log = log.With("user_agent", ua)
	}
	log.Info("comparison started")
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.runComparison(runCtx, req, &job, cat)
	if err != nil {
		log.Warn("comparison failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if ferr := s.finishJob(ctx, &job, nil, err); ferr != nil {
			return &job, errors.Join(err, ferr)
		}
		return &job, err
	}

	if err := s.finishJob(ctx, &job, report, nil); err != nil {
		return &job, err
	}

	log.Info("comparison completed",
		"fields", len(report.Fields),
		"failed_fields", report.Failed(),
		"rows_file1", report.TotalRows.File1,
		"rows_file2", report.TotalRows.File2,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &job, nil
}

func (s *Service) runComparison(ctx context.Context, req CompareRequest, job *store.ComparisonJob, cat *schema.Catalog) (*compare.Report, error) {
	t1, t2, err := s.loadPair(ctx, req.File1, req.File2)
	if err != nil {
		return nil, err
	}

	if len(job.Fields) == 0 {
		pairs, err := resolvePairs(t1, t2, cat, cleanFieldTypes(req.FieldTypes))
		if err != nil {
			return nil, err
		}
		job.Fields = pairs
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return compare.Compare(t1, t2, job.Fields), nil
}

// finishJob records the outcome. It persists even when ctx was cancelled,
// so a job never stays pending because its request went away.
func (s *Service) finishJob(ctx context.Context, job *store.ComparisonJob, report *compare.Report, runErr error) error {
	done := s.now()
	job.CompletedAt = &done
	if runErr != nil {
		job.Status = store.JobFailed
		job.Error = runErr.Error()
	} else {
		job.Status = store.JobCompleted
		job.Report = report
	}

	if err := s.store.UpdateJob(context.WithoutCancel(ctx), *job); err != nil {
		slog.Error("failed to record comparison result", "job_id", job.ID, "error", err)
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// normalizeFields trims names and rejects pairs missing a column.
func normalizeFields(in []compare.FieldPair) ([]compare.FieldPair, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]compare.FieldPair, len(in))
	for i, fp := range in {
		fp.Label = strings.TrimSpace(fp.Label)
		fp.Column1 = strings.TrimSpace(fp.Column1)
		fp.Column2 = strings.TrimSpace(fp.Column2)
		if fp.Column1 == "" || fp.Column2 == "" {
			return nil, fmt.Errorf("%w: mapping %d needs a column from each file", ErrInvalidMapping, i+1)
		}
		out[i] = fp
	}
	return out, nil
}

// notFound converts store.ErrNotFound to a domain sentinel.
func notFound(err error, sentinel error, id any) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", sentinel, id)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
