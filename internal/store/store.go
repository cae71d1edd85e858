// Package store persists the field mapping catalog, comparison history and
// scheduled comparison tasks.
//
// Two implementations share the same interfaces: Postgres (pgx) for
// deployments with a database, and Memory for tests and database-less runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tabdiff/internal/compare"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique value already exists.
	// The text matches the database error so both map to the same user message.
	ErrDuplicate = errors.New("duplicate key")
)

// FieldMapping is a stored catalog entry: a canonical field type and the
// column names known to hold it.
type FieldMapping struct {
	ID          uuid.UUID `json:"id"`
	FieldType   string    `json:"field_type"`
	Variations  []string  `json:"variations"`
	Description string    `json:"description"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobStatus is the lifecycle state of a comparison job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ComparisonJob records one comparison run and its report.
type ComparisonJob struct {
	ID          uuid.UUID           `json:"id"`
	File1       string              `json:"file1"`
	File2       string              `json:"file2"`
	Fields      []compare.FieldPair `json:"comparison_fields"`
	Status      JobStatus           `json:"status"`
	Report      *compare.Report     `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	TaskID      *uuid.UUID          `json:"task_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// JobStats summarizes comparison history.
type JobStats struct {
	Total     int `json:"total_comparisons"`
	Recent    int `json:"recent_comparisons"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// TaskStatus is the state of a scheduled task.
type TaskStatus string

const (
	TaskActive TaskStatus = "active"
	TaskPaused TaskStatus = "paused"
	TaskError  TaskStatus = "error"
)

// ParseTaskStatus validates a status name.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case TaskActive, TaskPaused, TaskError:
		return st, nil
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// Frequency is how often a scheduled task runs.
type Frequency string

const (
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Hourly, Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("invalid frequency %q: must be hourly, daily, weekly or monthly", s)
}

// Next returns the run time following t. A month is 30 days.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case Hourly:
		return t.Add(time.Hour)
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 0, 30)
	}
}

// ScheduledTask periodically compares a source and target file.
type ScheduledTask struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	SourcePath string              `json:"source_path"`
	TargetPath string              `json:"target_path"`
	Fields     []compare.FieldPair `json:"comparison_fields"`
	Frequency  Frequency           `json:"frequency"`
	Status     TaskStatus          `json:"status"`
	LastRun    *time.Time          `json:"last_run,omitempty"`
	NextRun    time.Time           `json:"next_run"`
	LastJobID  *uuid.UUID          `json:"last_job_id,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// MappingStore persists field mappings. Field types are unique ignoring case.
type MappingStore interface {
	ListMappings(ctx context.Context) ([]FieldMapping, error)
	GetMapping(ctx context.Context, id uuid.UUID) (FieldMapping, error)
	GetMappingByType(ctx context.Context, fieldType string) (FieldMapping, error)
	CreateMapping(ctx context.Context, m FieldMapping) (FieldMapping, error)
	UpdateMapping(ctx context.Context, m FieldMapping) (FieldMapping, error)
	DeleteMapping(ctx context.Context, id uuid.UUID) error
}

// JobStore persists comparison jobs.
type JobStore interface {
	CreateJob(ctx context.Context, j ComparisonJob) error
	UpdateJob(ctx context.Context, j ComparisonJob) error
	GetJob(ctx context.Context, id uuid.UUID) (ComparisonJob, error)
	ListJobs(ctx context.Context, limit int) ([]ComparisonJob, error)
	JobStats(ctx context.Context, since time.Time) (JobStats, error)
}

// TaskStore persists scheduled tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t ScheduledTask) error
	UpdateTask(ctx context.Context, t ScheduledTask) error
	GetTask(ctx context.Context, id uuid.UUID) (ScheduledTask, error)
	ListTasks(ctx context.Context) ([]ScheduledTask, error)
	// DueTasks returns active tasks whose next run is at or before now.
	DueTasks(ctx context.Context, now time.Time) ([]ScheduledTask, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

// Store bundles every store the service needs.
type Store interface {
	MappingStore
	JobStore
	TaskStore
	Close()
}
