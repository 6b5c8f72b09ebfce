package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

// ClassExceptionRepository looks up dates excluded from a class's recurrence.
type ClassExceptionRepository struct {
	db *sqlx.DB
}

// NewClassExceptionRepository creates a new class exception repository.
func NewClassExceptionRepository(db *sqlx.DB) *ClassExceptionRepository {
	return &ClassExceptionRepository{db: db}
}

// ListDates returns exception dates for a class within [from, to].
func (r *ClassExceptionRepository) ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT exception_date FROM class_exceptions WHERE class_id = $1 AND exception_date BETWEEN $2 AND $3 ORDER BY exception_date ASC`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, classID, models.DateOf(from), models.DateOf(to)); err != nil {
		return nil, fmt.Errorf("list class exceptions: %w", err)
	}
	return dates, nil
}

// Create records an exception; a second exception for the same class and date is a unique violation.
func (r *ClassExceptionRepository) Create(ctx context.Context, exception *models.ClassException) error {
	if exception.ID == "" {
		exception.ID = uuid.NewString()
	}
	if exception.Kind == "" {
		exception.Kind = models.ExceptionOther
	}
	exception.Date = models.DateOf(exception.Date)
	exception.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO class_exceptions (id, class_id, exception_date, reason, kind, created_at) VALUES (:id, :class_id, :exception_date, :reason, :kind, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exception); err != nil {
		return fmt.Errorf("create class exception: %w", err)
	}
	return nil
}
