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

const chargeColumns = `id, tenant_id, academy_id, athlete_id, period, amount_cents, currency, description, due_date, status, source, group_id, class_id, billing_item_id, paid_at, created_at, updated_at`

// ChargeRepository persists monthly charges.
type ChargeRepository struct {
	db *sqlx.DB
}

// NewChargeRepository creates a new charge repository.
func NewChargeRepository(db *sqlx.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

// ListBillingTargets returns up to limit active athletes of an academy with their billing group.
// Athletes in several groups are billed through their earliest membership. When groupID is set
// only members of that group are returned.
func (r *ChargeRepository) ListBillingTargets(ctx context.Context, academyID string, groupID *string, limit int) ([]models.BillingTarget, error) {
	var (
		query string
		args  []interface{}
	)
	if groupID != nil && *groupID != "" {
		query = `SELECT a.id AS athlete_id, a.name AS athlete_name, gm.group_id
FROM athletes a
JOIN group_members gm ON gm.athlete_id = a.id
WHERE a.academy_id = $1 AND a.active = TRUE AND gm.group_id = $2
ORDER BY a.name ASC, a.id ASC
LIMIT $3`
		args = []interface{}{academyID, *groupID, limit}
	} else {
		query = `SELECT a.id AS athlete_id, a.name AS athlete_name, m.group_id
FROM athletes a
LEFT JOIN LATERAL (
  SELECT gm.group_id FROM group_members gm JOIN groups g ON g.id = gm.group_id
  WHERE gm.athlete_id = a.id AND g.academy_id = a.academy_id
  ORDER BY gm.created_at ASC, gm.group_id ASC LIMIT 1
) m ON TRUE
WHERE a.academy_id = $1 AND a.active = TRUE
ORDER BY a.name ASC, a.id ASC
LIMIT $2`
		args = []interface{}{academyID, limit}
	}
	var targets []models.BillingTarget
	if err := r.db.SelectContext(ctx, &targets, query, args...); err != nil {
		return nil, fmt.Errorf("list billing targets: %w", err)
	}
	return targets, nil
}

// ListActiveChargedAthletes returns athletes that already hold an active generated charge for period.
func (r *ChargeRepository) ListActiveChargedAthletes(ctx context.Context, academyID, period string) ([]string, error) {
	const query = `SELECT DISTINCT athlete_id FROM charges WHERE academy_id = $1 AND period = $2 AND source = $3 AND status = ANY($4)`
	statuses := make([]string, 0, len(models.ActiveChargeStatuses))
	for _, s := range models.ActiveChargeStatuses {
		statuses = append(statuses, string(s))
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, academyID, period, models.ChargeSourceMonthly, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("list charged athletes: %w", err)
	}
	return ids, nil
}

// BulkInsert writes charges through exec. Rows blocked by the active-charge unique index are
// ignored; the number of rows actually inserted is returned.
func (r *ChargeRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, charges []models.Charge) (int, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO charges (id, tenant_id, academy_id, athlete_id, period, amount_cents, currency, description, due_date, status, source, group_id, class_id, billing_item_id, created_at, updated_at)
VALUES (:id, :tenant_id, :academy_id, :athlete_id, :period, :amount_cents, :currency, :description, :due_date, :status, :source, :group_id, :class_id, :billing_item_id, :created_at, :updated_at)
ON CONFLICT (athlete_id, period) WHERE status IN ('pending', 'paid', 'overdue') AND source = 'monthly_generator' DO NOTHING`
	now := time.Now().UTC()
	inserted := 0
	for i := range charges {
		payload := charges[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.Status == "" {
			payload.Status = models.ChargePending
		}
		if payload.Source == "" {
			payload.Source = models.ChargeSourceMonthly
		}
		payload.CreatedAt = now
		payload.UpdatedAt = now
		res, err := sqlx.NamedExecContext(ctx, exec, query, &payload)
		if err != nil {
			return inserted, fmt.Errorf("bulk insert charge: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("bulk insert charge: %w", err)
		}
		inserted += int(affected)
		charges[i] = payload
	}
	return inserted, nil
}

// FindByID loads a charge by id.
func (r *ChargeRepository) FindByID(ctx context.Context, id string) (*models.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE id = $1`
	var charge models.Charge
	if err := r.db.GetContext(ctx, &charge, query, id); err != nil {
		return nil, err
	}
	return &charge, nil
}

// UpdateStatus moves a charge from one status to another. It reports false when the charge was no
// longer in the expected status.
func (r *ChargeRepository) UpdateStatus(ctx context.Context, id string, from, to models.ChargeStatus, paidAt *time.Time) (bool, error) {
	const query = `UPDATE charges SET status = $1, paid_at = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, to, paidAt, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update charge status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update charge status: %w", err)
	}
	return affected > 0, nil
}

// MarkOverdue flags pending charges due before asOf.
func (r *ChargeRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	const query = `UPDATE charges SET status = 'overdue', updated_at = $1 WHERE status = 'pending' AND due_date < $2`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), models.DateOf(asOf))
	if err != nil {
		return 0, fmt.Errorf("mark charges overdue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark charges overdue: %w", err)
	}
	return affected, nil
}

// ListByPeriod returns an academy's charges for period with athlete names.
func (r *ChargeRepository) ListByPeriod(ctx context.Context, academyID, period string) ([]models.ChargeDetail, error) {
	const query = `SELECT c.id, c.tenant_id, c.academy_id, c.athlete_id, c.period, c.amount_cents, c.currency, c.description, c.due_date, c.status, c.source, c.group_id, c.class_id, c.billing_item_id, c.paid_at, c.created_at, c.updated_at, a.name AS athlete_name
FROM charges c
JOIN athletes a ON a.id = c.athlete_id
WHERE c.academy_id = $1 AND c.period = $2
ORDER BY a.name ASC, c.created_at ASC`
	var charges []models.ChargeDetail
	if err := r.db.SelectContext(ctx, &charges, query, academyID, period); err != nil {
		return nil, fmt.Errorf("list charges by period: %w", err)
	}
	return charges, nil
}
