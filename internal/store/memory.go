package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Data is lost when the process exits.
type Memory struct {
	mu       sync.RWMutex
	mappings map[uuid.UUID]FieldMapping
	jobs     map[uuid.UUID]ComparisonJob
	tasks    map[uuid.UUID]ScheduledTask
	now      func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		mappings: make(map[uuid.UUID]FieldMapping),
		jobs:     make(map[uuid.UUID]ComparisonJob),
		tasks:    make(map[uuid.UUID]ScheduledTask),
		now:      time.Now,
	}
}

// Close is a no-op.
func (m *Memory) Close() {}

func (m *Memory) ListMappings(ctx context.Context) ([]FieldMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]FieldMapping, 0, len(m.mappings))
	for _, fm := range m.mappings {
		out = append(out, cloneMapping(fm))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldType < out[j].FieldType })
	return out, nil
}

func (m *Memory) GetMapping(ctx context.Context, id uuid.UUID) (FieldMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fm, ok := m.mappings[id]
	if !ok {
		return FieldMapping{}, ErrNotFound
	}
	return cloneMapping(fm), nil
}

func (m *Memory) GetMappingByType(ctx context.Context, fieldType string) (FieldMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, fm := range m.mappings {
		if strings.EqualFold(fm.FieldType, fieldType) {
			return cloneMapping(fm), nil
		}
	}
	return FieldMapping{}, ErrNotFound
}

func (m *Memory) CreateMapping(ctx context.Context, fm FieldMapping) (FieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.typeTaken(fm.FieldType, uuid.Nil) {
		return FieldMapping{}, ErrDuplicate
	}
	if fm.ID == uuid.Nil {
		fm.ID = uuid.New()
	}
	now := m.now()
	fm.CreatedAt, fm.UpdatedAt = now, now
	m.mappings[fm.ID] = cloneMapping(fm)
	return cloneMapping(fm), nil
}

func (m *Memory) UpdateMapping(ctx context.Context, fm FieldMapping) (FieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.mappings[fm.ID]
	if !ok {
		return FieldMapping{}, ErrNotFound
	}
	if m.typeTaken(fm.FieldType, fm.ID) {
		return FieldMapping{}, ErrDuplicate
	}
	fm.CreatedAt = prev.CreatedAt
	fm.UpdatedAt = m.now()
	m.mappings[fm.ID] = cloneMapping(fm)
	return cloneMapping(fm), nil
}

func (m *Memory) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mappings[id]; !ok {
		return ErrNotFound
	}
	delete(m.mappings, id)
	return nil
}

// typeTaken reports whether another mapping already uses fieldType.
// Caller holds the lock.
func (m *Memory) typeTaken(fieldType string, except uuid.UUID) bool {
	for id, fm := range m.mappings {
		if id != except && strings.EqualFold(fm.FieldType, fieldType) {
			return true
		}
	}
	return false
}

func (m *Memory) CreateJob(ctx context.Context, j ComparisonJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; ok {
		return ErrDuplicate
	}
	m.jobs[j.ID] = cloneJob(j)
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, j ComparisonJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	m.jobs[j.ID] = cloneJob(j)
	return nil
}

func (m *Memory) GetJob(ctx context.Context, id uuid.UUID) (ComparisonJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return ComparisonJob{}, ErrNotFound
	}
	return cloneJob(j), nil
}

// ListJobs returns the most recent jobs first. A limit <= 0 returns all.
func (m *Memory) ListJobs(ctx context.Context, limit int) ([]ComparisonJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ComparisonJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) JobStats(ctx context.Context, since time.Time) (JobStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st JobStats
	for _, j := range m.jobs {
		st.Total++
		if !j.CreatedAt.Before(since) {
			st.Recent++
		}
		switch j.Status {
		case JobCompleted:
			st.Completed++
		case JobFailed:
			st.Failed++
		}
	}
	return st, nil
}

func (m *Memory) CreateTask(ctx context.Context, t ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; ok {
		return ErrDuplicate
	}
	m.tasks[t.ID] = cloneTask(t)
	return nil
}

func (m *Memory) UpdateTask(ctx context.Context, t ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	m.tasks[t.ID] = cloneTask(t)
	return nil
}

func (m *Memory) GetTask(ctx context.Context, id uuid.UUID) (ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return ScheduledTask{}, ErrNotFound
	}
	return cloneTask(t), nil
}

// ListTasks returns tasks ordered by name.
func (m *Memory) ListTasks(ctx context.Context) ([]ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, cloneTask(t))
	}
	sortTasks(out, func(a, b ScheduledTask) bool { return a.Name < b.Name })
	return out, nil
}

// DueTasks returns due active tasks, earliest first.
func (m *Memory) DueTasks(ctx context.Context, now time.Time) ([]ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ScheduledTask
	for _, t := range m.tasks {
		if t.Status == TaskActive && !t.NextRun.After(now) {
			out = append(out, cloneTask(t))
		}
	}
	sortTasks(out, func(a, b ScheduledTask) bool { return a.NextRun.Before(b.NextRun) })
	return out, nil
}

func (m *Memory) DeleteTask(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// sortTasks orders by less, falling back to ID so results are stable.
func sortTasks(tasks []ScheduledTask, less func(a, b ScheduledTask) bool) {
	sort.Slice(tasks, func(i, j int) bool {
		if less(tasks[i], tasks[j]) {
			return true
		}
		if less(tasks[j], tasks[i]) {
			return false
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})
}

func cloneMapping(fm FieldMapping) FieldMapping {
	fm.Variations = slices.Clone(fm.Variations)
	return fm
}

func cloneJob(j ComparisonJob) ComparisonJob {
	j.Fields = slices.Clone(j.Fields)
	return j
}

func cloneTask(t ScheduledTask) ScheduledTask {
	t.Fields = slices.Clone(t.Fields)
	return t
}
