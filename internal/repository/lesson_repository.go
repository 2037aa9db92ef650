package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
)

// LessonRepository provides persistence for generated lesson occurrences.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListBySchedule returns lessons for a schedule ordered by date.
func (r *LessonRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time, status, created_at FROM lessons WHERE schedule_id = $1 ORDER BY date ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list lessons by schedule: %w", err)
	}
	return lessons, nil
}

// ExistingDates returns the dates already generated for a schedule.
func (r *LessonRepository) ExistingDates(ctx context.Context, scheduleID string) ([]time.Time, error) {
	const query = `SELECT date FROM lessons WHERE schedule_id = $1`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list lesson dates: %w", err)
	}
	return dates, nil
}

// BulkCreate inserts generated lessons within a transaction.
func (r *LessonRepository) BulkCreate(ctx context.Context, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create lessons: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range lessons {
		payload := lessons[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO lessons (id, schedule_id, date, start_time, end_time, status, created_at) VALUES (:id, :schedule_id, :date, :start_time, :end_time, :status, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert lesson: %w", err)
		}
		lessons[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create lessons: %w", err)
	}
	return nil
}
