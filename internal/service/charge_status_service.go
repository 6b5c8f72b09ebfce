package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type chargeStatusStore interface {
	FindByID(ctx context.Context, id string) (*models.Charge, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ChargeStatus, paidAt *time.Time) (bool, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// ChargeStatusService applies externally confirmed payment outcomes and the overdue sweep.
type ChargeStatusService struct {
	charges   chargeStatusStore
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewChargeStatusService constructs the service; today is evaluated in loc.
func NewChargeStatusService(charges chargeStatusStore, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ChargeStatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ChargeStatusService{charges: charges, validator: validate, logger: logger, location: loc, now: time.Now}
}

// ApplyPaymentStatus moves a charge to the confirmed status when the transition is allowed.
func (s *ChargeStatusService) ApplyPaymentStatus(ctx context.Context, tenantID, chargeID string, req dto.ChargeStatusRequest) (*models.Charge, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid charge status payload")
	}
	charge, err := s.charges.FindByID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "charge not found")
		}
		return nil, appErrors.Persistence(err, "failed to load charge")
	}
	if tenantID != "" && charge.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "charge not found")
	}

	next := models.ChargeStatus(req.Status)
	if !charge.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move charge from %s to %s", charge.Status, next))
	}

	var paidAt *time.Time
	if next == models.ChargePaid || next == models.ChargePartial {
		at := s.now().UTC()
		if req.PaidAt != nil {
			at = req.PaidAt.UTC()
		}
		paidAt = &at
	}

	updated, err := s.charges.UpdateStatus(ctx, charge.ID, charge.Status, next, paidAt)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to update charge status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "charge status changed concurrently, retry with fresh data")
	}

	s.logger.Info("charge status updated",
		zap.String("charge_id", charge.ID),
		zap.String("from", string(charge.Status)),
		zap.String("to", string(next)),
	)
	charge.Status = next
	charge.PaidAt = paidAt
	return charge, nil
}

// MarkOverdue moves pending charges whose due date has passed to overdue.
func (s *ChargeStatusService) MarkOverdue(ctx context.Context) (*dto.OverdueSweepResult, error) {
	today := models.DateOf(s.now().In(s.location))
	updated, err := s.charges.MarkOverdue(ctx, today)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to mark overdue charges")
	}
	s.logger.Info("overdue charges marked", zap.String("as_of", models.DateKey(today)), zap.Int64("updated", updated))
	return &dto.OverdueSweepResult{AsOf: models.DateKey(today), Updated: updated}, nil
}
