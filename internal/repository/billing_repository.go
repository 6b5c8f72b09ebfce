package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

// GroupFeeRepository reads the monthly fee configured on groups.
type GroupFeeRepository struct {
	db *sqlx.DB
}

// NewGroupFeeRepository creates a new group fee repository.
func NewGroupFeeRepository(db *sqlx.DB) *GroupFeeRepository {
	return &GroupFeeRepository{db: db}
}

// FindByGroup loads the fee of a group.
func (r *GroupFeeRepository) FindByGroup(ctx context.Context, groupID string) (*models.GroupFee, error) {
	const query = `SELECT id AS group_id, name AS group_name, monthly_fee_cents FROM groups WHERE id = $1`
	var fee models.GroupFee
	if err := r.db.GetContext(ctx, &fee, query, groupID); err != nil {
		return nil, err
	}
	return &fee, nil
}

// AcademyRepository reads academy conventions.
type AcademyRepository struct {
	db *sqlx.DB
}

// NewAcademyRepository creates a new academy repository.
func NewAcademyRepository(db *sqlx.DB) *AcademyRepository {
	return &AcademyRepository{db: db}
}

// FindByID loads an academy by id.
func (r *AcademyRepository) FindByID(ctx context.Context, id string) (*models.Academy, error) {
	const query = `SELECT id, tenant_id, name, currency FROM academies WHERE id = $1`
	var academy models.Academy
	if err := r.db.GetContext(ctx, &academy, query, id); err != nil {
		return nil, err
	}
	return &academy, nil
}

// ListIDs returns every academy id, used by scheduled jobs that fan out per academy.
func (r *AcademyRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM academies ORDER BY id ASC`); err != nil {
		return nil, err
	}
	return ids, nil
}
