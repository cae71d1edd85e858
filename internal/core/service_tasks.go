package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

// TaskInput describes a new scheduled comparison.
type TaskInput struct {
	Name       string              `json:"name"`
	SourcePath string              `json:"source_path"`
	TargetPath string              `json:"target_path"`
	Fields     []compare.FieldPair `json:"comparison_fields"`
	Frequency  string              `json:"frequency"`

	// NextRun defaults to now, so a new task runs on the next check.
	NextRun *time.Time `json:"next_run,omitempty"`
}

func (s *Service) CreateTask(ctx context.Context, in TaskInput) (store.ScheduledTask, error) {
	name := strings.TrimSpace(in.Name)
	src := strings.TrimSpace(in.SourcePath)
	dst := strings.TrimSpace(in.TargetPath)
	if name == "" || src == "" || dst == "" {
		return store.ScheduledTask{}, fmt.Errorf("%w: name, source_path and target_path are required", ErrInvalidTask)
	}

	freq, err := store.ParseFrequency(in.Frequency)
	if err != nil {
		return store.ScheduledTask{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}

	fields, err := normalizeFields(in.Fields)
	if err != nil {
		return store.ScheduledTask{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if len(fields) == 0 {
		return store.ScheduledTask{}, fmt.Errorf("%w: at least one comparison field is required", ErrInvalidTask)
	}

	now := s.now()
	next := now
	if in.NextRun != nil {
		next = *in.NextRun
	}

	task := store.ScheduledTask{
		ID:         uuid.New(),
		Name:       name,
		SourcePath: src,
		TargetPath: dst,
		Fields:     fields,
		Frequency:  freq,
		Status:     store.TaskActive,
		NextRun:    next,
		CreatedAt:  now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return store.ScheduledTask{}, fmt.Errorf("create task: %w", err)
	}

	slog.Info("scheduled task created", "task_id", task.ID, "name", task.Name, "frequency", task.Frequency)
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context) ([]store.ScheduledTask, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []store.ScheduledTask{}
	}
	return tasks, nil
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (store.ScheduledTask, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return store.ScheduledTask{}, notFound(err, ErrTaskNotFound, id)
	}
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", notFound(err, ErrTaskNotFound, id))
	}
	return nil
}

// SetTaskStatus pauses, resumes or flags a task. Resuming clears the last
// error so the task runs again at its next scheduled time.
func (s *Service) SetTaskStatus(ctx context.Context, id uuid.UUID, status string) (store.ScheduledTask, error) {
	st, err := store.ParseTaskStatus(status)
	if err != nil {
		return store.ScheduledTask{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return store.ScheduledTask{}, err
	}

	task.Status = st
	if st == store.TaskActive {
		task.LastError = ""
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return store.ScheduledTask{}, fmt.Errorf("update task: %w", notFound(err, ErrTaskNotFound, id))
	}
	return task, nil
}

// TaskRunSummary counts the outcome of one RunDueTasks pass.
type TaskRunSummary struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunDueTasks runs every active task whose next run is at or before now.
func (s *Service) RunDueTasks(ctx context.Context, now time.Time) (TaskRunSummary, error) {
	return s.runDueTasks(ctx, now, s.taskConc)
}

func (s *Service) runDueTasks(ctx context.Context, now time.Time, limit int) (TaskRunSummary, error) {
	due, err := s.store.DueTasks(ctx, now)
	if err != nil {
		return TaskRunSummary{}, fmt.Errorf("due tasks: %w", err)
	}

	var (
		mu  sync.Mutex
		sum = TaskRunSummary{Due: len(due)}
	)

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, task := range due {
		g.Go(func() error {
			outcome, err := s.runTask(ctx, task, now)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case taskCompleted:
				sum.Completed++
			case taskFailed:
				sum.Failed++
			default:
				sum.Skipped++
			}
			return err
		})
	}
	return sum, g.Wait()
}

type taskOutcome int

const (
	taskSkipped taskOutcome = iota
	taskCompleted
	taskFailed
)

// runTask compares a task's files and advances its schedule. A failed run
// flags the task as error and leaves LastRun and NextRun alone; it is not
// retried until someone resumes it. A run that could not start because the
// service was busy or shutting down leaves the task untouched.
func (s *Service) runTask(ctx context.Context, task store.ScheduledTask, now time.Time) (taskOutcome, error) {
	log := slog.With("task_id", task.ID, "task", task.Name)

	job, err := s.Compare(ctx, CompareRequest{
		File1:  Local(task.SourcePath),
		File2:  Local(task.TargetPath),
		Fields: task.Fields,
		TaskID: &task.ID,
	})
	if job == nil && err != nil && (errors.Is(err, ErrTooManyComparisons) || ctx.Err() != nil) {
		log.Warn("scheduled task skipped", "error", err)
		return taskSkipped, nil
	}

	outcome := taskCompleted
	if job != nil {
		task.LastJobID = &job.ID
	}
	if err != nil {
		outcome = taskFailed
		task.Status = store.TaskError
		task.LastError = err.Error()
		log.Error("scheduled task failed", "error", err)
	} else {
		ran := now
		task.LastRun = &ran
		task.NextRun = task.Frequency.Next(now)
		task.LastError = ""
		log.Info("scheduled task completed", "job_id", job.ID, "next_run", task.NextRun)
	}

	if err := s.store.UpdateTask(context.WithoutCancel(ctx), task); err != nil {
		return outcome, fmt.Errorf("update task %s: %w", task.ID, err)
	}
	return outcome, nil
}
