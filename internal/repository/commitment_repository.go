package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

// commitmentRow is the flat shape every commitment query selects.
type commitmentRow struct {
	ClassID     string        `db:"class_id"`
	ClassName   string        `db:"class_name"`
	StartTime   *models.Clock `db:"start_time"`
	EndTime     *models.Clock `db:"end_time"`
	Weekdays    pq.Int64Array `db:"weekdays"`
	SessionDate *time.Time    `db:"session_date"`
}

func (row commitmentRow) base() models.Commitment {
	days := make([]models.Weekday, 0, len(row.Weekdays))
	for _, d := range row.Weekdays {
		days = append(days, models.Weekday(d))
	}
	return models.BaseCommitment(row.ClassID, row.ClassName, days, row.StartTime, row.EndTime)
}

func (row commitmentRow) extra() models.Commitment {
	var date time.Time
	if row.SessionDate != nil {
		date = *row.SessionDate
	}
	return models.ExtraCommitment(row.ClassID, row.ClassName, date, row.StartTime, row.EndTime)
}

// CommitmentRepository resolves the recurring and one-off commitments of athletes and coaches.
type CommitmentRepository struct {
	db *sqlx.DB
}

// NewCommitmentRepository creates a new commitment repository.
func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// ListAthleteBase returns classes an athlete attends through group membership. An empty tenantID
// lists across tenants.
func (r *CommitmentRepository) ListAthleteBase(ctx context.Context, tenantID, athleteID string) ([]models.Commitment, error) {
	const query = `SELECT ct.id AS class_id, ct.name AS class_name, ct.start_time, ct.end_time, array_agg(DISTINCT w.weekday) AS weekdays
FROM group_members gm
JOIN group_classes gc ON gc.group_id = gm.group_id
JOIN class_templates ct ON ct.id = gc.class_id
JOIN class_template_weekdays w ON w.class_id = ct.id
WHERE gm.athlete_id = $1 AND ($2 = '' OR ct.tenant_id = $2)
GROUP BY ct.id, ct.name, ct.start_time, ct.end_time
ORDER BY ct.start_time ASC NULLS LAST, ct.id ASC`
	return r.selectBase(ctx, "list athlete base commitments", query, athleteID, tenantID)
}

// ListCoachBase returns classes a coach is assigned to by template.
func (r *CommitmentRepository) ListCoachBase(ctx context.Context, tenantID, coachID string) ([]models.Commitment, error) {
	const query = `SELECT ct.id AS class_id, ct.name AS class_name, ct.start_time, ct.end_time, array_agg(DISTINCT w.weekday) AS weekdays
FROM class_templates ct
JOIN class_template_weekdays w ON w.class_id = ct.id
WHERE ct.coach_id = $1 AND ($2 = '' OR ct.tenant_id = $2)
GROUP BY ct.id, ct.name, ct.start_time, ct.end_time
ORDER BY ct.start_time ASC NULLS LAST, ct.id ASC`
	return r.selectBase(ctx, "list coach base commitments", query, coachID, tenantID)
}

// ListAthleteExtra returns an athlete's ad-hoc class links on date.
func (r *CommitmentRepository) ListAthleteExtra(ctx context.Context, tenantID, athleteID string, date time.Time) ([]models.Commitment, error) {
	const query = `SELECT ae.class_id, ct.name AS class_name, ae.start_time, ae.end_time, ae.session_date
FROM athlete_extra_classes ae
JOIN class_templates ct ON ct.id = ae.class_id
WHERE ae.athlete_id = $1 AND ae.session_date = $2 AND ($3 = '' OR ct.tenant_id = $3)
ORDER BY ae.start_time ASC NULLS LAST, ae.class_id ASC`
	return r.selectExtra(ctx, "list athlete extra commitments", query, athleteID, models.DateOf(date), tenantID)
}

// ListCoachExtra returns live sessions on date that a coach runs outside their template assignments.
func (r *CommitmentRepository) ListCoachExtra(ctx context.Context, tenantID, coachID string, date time.Time) ([]models.Commitment, error) {
	const query = `SELECT cs.class_id, ct.name AS class_name, cs.start_time, cs.end_time, cs.session_date
FROM class_sessions cs
JOIN class_templates ct ON ct.id = cs.class_id
WHERE cs.coach_id = $1 AND cs.session_date = $2 AND cs.status <> 'cancelled' AND ($3 = '' OR cs.tenant_id = $3)
  AND (cs.origin = 'manual' OR ct.coach_id IS DISTINCT FROM cs.coach_id)
ORDER BY cs.start_time ASC NULLS LAST, cs.class_id ASC`
	return r.selectExtra(ctx, "list coach extra commitments", query, coachID, models.DateOf(date), tenantID)
}

// ResourceTenant returns the tenant owning an athlete or a coach. A missing resource yields
// sql.ErrNoRows.
func (r *CommitmentRepository) ResourceTenant(ctx context.Context, kind models.ResourceKind, id string) (string, error) {
	var query string
	switch kind {
	case models.ResourceAthlete:
		query = `SELECT tenant_id FROM athletes WHERE id = $1`
	case models.ResourceCoach:
		query = `SELECT tenant_id FROM coaches WHERE id = $1`
	default:
		return "", fmt.Errorf("resolve tenant: unknown resource kind %q", kind)
	}
	var tenantID string
	if err := r.db.GetContext(ctx, &tenantID, query, id); err != nil {
		return "", fmt.Errorf("resolve %s tenant: %w", kind, err)
	}
	return tenantID, nil
}

// CreateExtraClass links an athlete to one class occurrence. A repeated link is a unique violation.
func (r *CommitmentRepository) CreateExtraClass(ctx context.Context, extra *models.AthleteExtraClass) error {
	if extra.ID == "" {
		extra.ID = uuid.NewString()
	}
	extra.Date = models.DateOf(extra.Date)
	extra.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO athlete_extra_classes (id, athlete_id, class_id, session_date, start_time, end_time, created_at) VALUES (:id, :athlete_id, :class_id, :session_date, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, extra); err != nil {
		return fmt.Errorf("create athlete extra class: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) selectBase(ctx context.Context, op, query string, args ...interface{}) ([]models.Commitment, error) {
	var rows []commitmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.Commitment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.base())
	}
	return out, nil
}

func (r *CommitmentRepository) selectExtra(ctx context.Context, op, query string, args ...interface{}) ([]models.Commitment, error) {
	var rows []commitmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.Commitment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.extra())
	}
	return out, nil
}
