package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

const classTemplateColumns = `id, tenant_id, academy_id, name, coach_id, start_time, end_time, capacity, auto_generate, created_at, updated_at`

// ClassTemplateRepository reads weekly class definitions.
type ClassTemplateRepository struct {
	db *sqlx.DB
}

// NewClassTemplateRepository creates a new class template repository.
func NewClassTemplateRepository(db *sqlx.DB) *ClassTemplateRepository {
	return &ClassTemplateRepository{db: db}
}

// FindByID loads a class template by id.
func (r *ClassTemplateRepository) FindByID(ctx context.Context, id string) (*models.ClassTemplate, error) {
	query := `SELECT ` + classTemplateColumns + ` FROM class_templates WHERE id = $1`
	var class models.ClassTemplate
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListWeekdays returns the configured weekdays of a class in ascending order.
func (r *ClassTemplateRepository) ListWeekdays(ctx context.Context, classID string) ([]models.Weekday, error) {
	const query = `SELECT weekday FROM class_template_weekdays WHERE class_id = $1 ORDER BY weekday ASC`
	var raw []int
	if err := r.db.SelectContext(ctx, &raw, query, classID); err != nil {
		return nil, fmt.Errorf("list class weekdays: %w", err)
	}
	days := make([]models.Weekday, 0, len(raw))
	for _, d := range raw {
		days = append(days, models.Weekday(d))
	}
	return days, nil
}

// ListAutoGenerate returns the classes of an academy with automatic generation enabled.
func (r *ClassTemplateRepository) ListAutoGenerate(ctx context.Context, academyID string) ([]models.ClassTemplate, error) {
	query := `SELECT ` + classTemplateColumns + ` FROM class_templates WHERE academy_id = $1 AND auto_generate = TRUE ORDER BY name ASC, id ASC`
	var classes []models.ClassTemplate
	if err := r.db.SelectContext(ctx, &classes, query, academyID); err != nil {
		return nil, fmt.Errorf("list auto-generate classes: %w", err)
	}
	return classes, nil
}

// ListAcademiesWithAutoGenerate returns every academy owning at least one auto-generating class.
func (r *ClassTemplateRepository) ListAcademiesWithAutoGenerate(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT academy_id FROM class_templates WHERE auto_generate = TRUE ORDER BY academy_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list academies with auto-generate classes: %w", err)
	}
	return ids, nil
}
