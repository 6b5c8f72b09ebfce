package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

const insertClassSessionQuery = `INSERT INTO class_sessions (id, tenant_id, class_id, session_date, start_time, end_time, status, coach_id, origin, created_at, updated_at) VALUES (:id, :tenant_id, :class_id, :session_date, :start_time, :end_time, :status, :coach_id, :origin, :created_at, :updated_at)`

// ClassSessionRepository persists materialized class sessions.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository creates a new class session repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// ListDates returns the dates that already hold a session for the class within [from, to].
func (r *ClassSessionRepository) ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error) {
	const query = `SELECT session_date FROM class_sessions WHERE class_id = $1 AND session_date BETWEEN $2 AND $3 ORDER BY session_date ASC`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, classID, models.DateOf(from), models.DateOf(to)); err != nil {
		return nil, fmt.Errorf("list class session dates: %w", err)
	}
	return dates, nil
}

// BulkInsert writes sessions through exec, ignoring rows that collide on (class_id, session_date).
// It returns how many rows were actually inserted.
func (r *ClassSessionRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, sessions []models.ClassSession) (int, error) {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	inserted := 0
	for i := range sessions {
		payload := prepareSession(sessions[i], now)
		res, err := sqlx.NamedExecContext(ctx, exec, insertClassSessionQuery+` ON CONFLICT (class_id, session_date) DO NOTHING`, &payload)
		if err != nil {
			return inserted, fmt.Errorf("bulk insert class session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("bulk insert class session: %w", err)
		}
		inserted += int(affected)
		sessions[i] = payload
	}
	return inserted, nil
}

// Create inserts a single session. A session already present on that date is a unique violation.
func (r *ClassSessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	payload := prepareSession(*session, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertClassSessionQuery, &payload); err != nil {
		return fmt.Errorf("create class session: %w", err)
	}
	*session = payload
	return nil
}

func prepareSession(session models.ClassSession, now time.Time) models.ClassSession {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	if session.Origin == "" {
		session.Origin = models.SessionOriginGenerated
	}
	session.Date = models.DateOf(session.Date)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	return session
}
