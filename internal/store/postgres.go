package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgres wraps an open pool. Run Migrate before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// Close closes the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Pool returns the underlying connection pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// pgErr converts driver errors to the store's sentinel errors.
func pgErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgOptUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func pgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgUUID(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func fromPgTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// --- field mappings ---

const mappingColumns = `id, field_type, variations, description, is_active, created_at, updated_at`

func scanMapping(row pgx.Row) (FieldMapping, error) {
	var (
		fm FieldMapping
		id pgtype.UUID
	)
	err := row.Scan(&id, &fm.FieldType, &fm.Variations, &fm.Description, &fm.Active, &fm.CreatedAt, &fm.UpdatedAt)
	if err != nil {
		return FieldMapping{}, err
	}
	fm.ID = uuid.UUID(id.Bytes)
	if fm.Variations == nil {
		fm.Variations = []string{}
	}
	return fm, nil
}

func (p *Postgres) ListMappings(ctx context.Context) ([]FieldMapping, error) {
	rows, err := p.db.Query(ctx, `SELECT `+mappingColumns+` FROM field_mappings ORDER BY field_type`)
	if err != nil {
		return nil, pgErr("list mappings", err)
	}
	defer rows.Close()

	var out []FieldMapping
	for rows.Next() {
		fm, err := scanMapping(rows)
		if err != nil {
			return nil, pgErr("scan mapping", err)
		}
		out = append(out, fm)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("list mappings", err)
	}
	return out, nil
}

func (p *Postgres) GetMapping(ctx context.Context, id uuid.UUID) (FieldMapping, error) {
	fm, err := scanMapping(p.db.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM field_mappings WHERE id = $1`, pgUUID(id)))
	if err != nil {
		return FieldMapping{}, pgErr("get mapping", err)
	}
	return fm, nil
}

func (p *Postgres) GetMappingByType(ctx context.Context, fieldType string) (FieldMapping, error) {
	fm, err := scanMapping(p.db.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM field_mappings WHERE lower(field_type) = lower($1)`, fieldType))
	if err != nil {
		return FieldMapping{}, pgErr("get mapping", err)
	}
	return fm, nil
}

func (p *Postgres) CreateMapping(ctx context.Context, fm FieldMapping) (FieldMapping, error) {
	if fm.ID == uuid.Nil {
		fm.ID = uuid.New()
	}
	out, err := scanMapping(p.db.QueryRow(ctx, `
		INSERT INTO field_mappings (id, field_type, variations, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+mappingColumns,
		pgUUID(fm.ID), fm.FieldType, fm.Variations, fm.Description, fm.Active))
	if err != nil {
		return FieldMapping{}, pgErr("create mapping", err)
	}
	return out, nil
}

func (p *Postgres) UpdateMapping(ctx context.Context, fm FieldMapping) (FieldMapping, error) {
	out, err := scanMapping(p.db.QueryRow(ctx, `
		UPDATE field_mappings
		SET field_type = $2, variations = $3, description = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+mappingColumns,
		pgUUID(fm.ID), fm.FieldType, fm.Variations, fm.Description, fm.Active))
	if err != nil {
		return FieldMapping{}, pgErr("update mapping", err)
	}
	return out, nil
}

func (p *Postgres) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM field_mappings WHERE id = $1`, pgUUID(id))
	if err != nil {
		return pgErr("delete mapping", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- comparison jobs ---

const jobColumns = `id, file1, file2, comparison_fields, status, result, error, task_id, created_at, completed_at`

func scanJob(row pgx.Row) (ComparisonJob, error) {
	var (
		j           ComparisonJob
		id, taskID  pgtype.UUID
		fields      []byte
		result      []byte
		status      string
		completedAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &j.File1, &j.File2, &fields, &status, &result, &j.Error, &taskID, &j.CreatedAt, &completedAt)
	if err != nil {
		return ComparisonJob{}, err
	}
	j.ID = uuid.UUID(id.Bytes)
	j.Status = JobStatus(status)
	j.TaskID = fromPgUUID(taskID)
	j.CompletedAt = fromPgTime(completedAt)

	if err := json.Unmarshal(fields, &j.Fields); err != nil {
		return ComparisonJob{}, fmt.Errorf("unmarshal comparison fields: %w", err)
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &j.Report); err != nil {
			return ComparisonJob{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return j, nil
}

func jobArgs(j ComparisonJob) ([]any, error) {
	fields, err := json.Marshal(j.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal comparison fields: %w", err)
	}
	var result []byte
	if j.Report != nil {
		if result, err = json.Marshal(j.Report); err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return []any{
		pgUUID(j.ID), j.File1, j.File2, fields, string(j.Status), result, j.Error,
		pgOptUUID(j.TaskID), j.CreatedAt, pgTime(j.CompletedAt),
	}, nil
}

func (p *Postgres) CreateJob(ctx context.Context, j ComparisonJob) error {
	args, err := jobArgs(j)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO comparison_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, args...)
	if err != nil {
		return pgErr("create job", err)
	}
	return nil
}

func (p *Postgres) UpdateJob(ctx context.Context, j ComparisonJob) error {
	args, err := jobArgs(j)
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE comparison_jobs
		SET file1 = $2, file2 = $3, comparison_fields = $4, status = $5, result = $6,
		    error = $7, task_id = $8, created_at = $9, completed_at = $10
		WHERE id = $1`, args...)
	if err != nil {
		return pgErr("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id uuid.UUID) (ComparisonJob, error) {
	j, err := scanJob(p.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM comparison_jobs WHERE id = $1`, pgUUID(id)))
	if err != nil {
		return ComparisonJob{}, pgErr("get job", err)
	}
	return j, nil
}

func (p *Postgres) ListJobs(ctx context.Context, limit int) ([]ComparisonJob, error) {
	query := `SELECT ` + jobColumns + ` FROM comparison_jobs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr("list jobs", err)
	}
	defer rows.Close()

	var out []ComparisonJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, pgErr("scan job", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("list jobs", err)
	}
	return out, nil
}

func (p *Postgres) JobStats(ctx context.Context, since time.Time) (JobStats, error) {
	var st JobStats
	err := p.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE created_at >= $1),
		       count(*) FILTER (WHERE status = 'completed'),
		       count(*) FILTER (WHERE status = 'failed')
		FROM comparison_jobs`, since).Scan(&st.Total, &st.Recent, &st.Completed, &st.Failed)
	if err != nil {
		return JobStats{}, pgErr("job stats", err)
	}
	return st, nil
}

// --- scheduled tasks ---

const taskColumns = `id, name, source_path, target_path, comparison_fields, frequency, status,
	last_run, next_run, last_job_id, last_error, created_at`

func scanTask(row pgx.Row) (ScheduledTask, error) {
	var (
		t                ScheduledTask
		id, lastJob      pgtype.UUID
		fields           []byte
		frequency, state string
		lastRun          pgtype.Timestamptz
	)
	err := row.Scan(&id, &t.Name, &t.SourcePath, &t.TargetPath, &fields, &frequency, &state,
		&lastRun, &t.NextRun, &lastJob, &t.LastError, &t.CreatedAt)
	if err != nil {
		return ScheduledTask{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	t.Frequency = Frequency(frequency)
	t.Status = TaskStatus(state)
	t.LastRun = fromPgTime(lastRun)
	t.LastJobID = fromPgUUID(lastJob)
	if err := json.Unmarshal(fields, &t.Fields); err != nil {
		return ScheduledTask{}, fmt.Errorf("unmarshal comparison fields: %w", err)
	}
	return t, nil
}

func taskArgs(t ScheduledTask) ([]any, error) {
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal comparison fields: %w", err)
	}
	return []any{
		pgUUID(t.ID), t.Name, t.SourcePath, t.TargetPath, fields, string(t.Frequency), string(t.Status),
		pgTime(t.LastRun), t.NextRun, pgOptUUID(t.LastJobID), t.LastError, t.CreatedAt,
	}, nil
}

func (p *Postgres) queryTasks(ctx context.Context, op, query string, args ...any) ([]ScheduledTask, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr(op, err)
	}
	defer rows.Close()

	var out []ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, pgErr("scan task", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(op, err)
	}
	return out, nil
}

func (p *Postgres) CreateTask(ctx context.Context, t ScheduledTask) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, args...)
	if err != nil {
		return pgErr("create task", err)
	}
	return nil
}

func (p *Postgres) UpdateTask(ctx context.Context, t ScheduledTask) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE scheduled_tasks
		SET name = $2, source_path = $3, target_path = $4, comparison_fields = $5, frequency = $6,
		    status = $7, last_run = $8, next_run = $9, last_job_id = $10, last_error = $11, created_at = $12
		WHERE id = $1`, args...)
	if err != nil {
		return pgErr("update task", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetTask(ctx context.Context, id uuid.UUID) (ScheduledTask, error) {
	t, err := scanTask(p.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = $1`, pgUUID(id)))
	if err != nil {
		return ScheduledTask{}, pgErr("get task", err)
	}
	return t, nil
}

func (p *Postgres) ListTasks(ctx context.Context) ([]ScheduledTask, error) {
	return p.queryTasks(ctx, "list tasks",
		`SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY name, id`)
}

func (p *Postgres) DueTasks(ctx context.Context, now time.Time) ([]ScheduledTask, error) {
	return p.queryTasks(ctx, "due tasks",
		`SELECT `+taskColumns+` FROM scheduled_tasks
		 WHERE status = 'active' AND next_run <= $1
		 ORDER BY next_run, id`, now)
}

func (p *Postgres) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, pgUUID(id))
	if err != nil {
		return pgErr("delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
