package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const taskColumns = `id, practitioner_id, title, notes, task_date, start_at,
	end_at, status, priority, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var notes *string

	err := row.Scan(
		&t.ID,
		&t.PractitionerID,
		&t.Title,
		&notes,
		&t.Date,
		&t.StartAt,
		&t.EndAt,
		&t.Status,
		&t.Priority,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if notes != nil {
		t.Notes = *notes
	}
	t.Date = DateOf(t.Date)
	return &t, nil
}

func (r *PgRepository) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks
			(id, practitioner_id, title, notes, task_date, start_at, end_at,
			 status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at
	`, t.ID, t.PractitionerID, t.Title, nullable(t.Notes), t.Date,
		t.StartAt, t.EndAt, t.Status, t.Priority)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *PgRepository) GetTask(ctx context.Context, practitionerID, id uuid.UUID) (*Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID))
}

func (r *PgRepository) ListTasks(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE practitioner_id = $1 AND task_date >= $2 AND task_date < $3
		ORDER BY task_date, start_at NULLS LAST
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *PgRepository) ListTasksOn(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE practitioner_id = $1 AND task_date = $2
		ORDER BY start_at NULLS LAST
	`, practitionerID, DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	var result []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateTask(ctx context.Context, t *Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $3, notes = $4, task_date = $5, start_at = $6,
		    end_at = $7, status = $8, priority = $9, updated_at = now()
		WHERE id = $1 AND practitioner_id = $2
	`, t.ID, t.PractitionerID, t.Title, nullable(t.Notes), t.Date,
		t.StartAt, t.EndAt, t.Status, t.Priority)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *PgRepository) DeleteTask(ctx context.Context, practitionerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tasks WHERE id = $1 AND practitioner_id = $2
	`, id, practitionerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
