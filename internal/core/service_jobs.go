package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tabdiff/internal/store"
)

// RecentWindow is the span counted as "recent" in Stats.
const RecentWindow = 7 * 24 * time.Hour

// DefaultHistoryLimit caps ListComparisons when no limit is given.
const DefaultHistoryLimit = 50

func (s *Service) GetComparison(ctx context.Context, id uuid.UUID) (store.ComparisonJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return store.ComparisonJob{}, notFound(err, ErrJobNotFound, id)
	}
	return job, nil
}

// ListComparisons returns the most recent jobs first.
func (s *Service) ListComparisons(ctx context.Context, limit int) ([]store.ComparisonJob, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	jobs, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	if jobs == nil {
		jobs = []store.ComparisonJob{}
	}
	return jobs, nil
}

// Stats summarizes history, the catalog and current load.
type Stats struct {
	store.JobStats
	FieldTypes  int           `json:"field_types"`
	ActiveTasks int           `json:"active_tasks"`
	Limiter     LimiterStatus `json:"limiter"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	js, err := s.store.JobStats(ctx, s.now().Add(-RecentWindow))
	if err != nil {
		return Stats{}, fmt.Errorf("job stats: %w", err)
	}

	mappings, err := s.store.ListMappings(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list mappings: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list tasks: %w", err)
	}

	st := Stats{JobStats: js, Limiter: s.limiter.Status()}
	for _, fm := range mappings {
		if fm.Active {
			st.FieldTypes++
		}
	}
	for _, t := range tasks {
		if t.Status == store.TaskActive {
			st.ActiveTasks++
		}
	}
	return st, nil
}
