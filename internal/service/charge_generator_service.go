package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type chargeGeneratorStore interface {
	ListBillingTargets(ctx context.Context, academyID string, groupID *string, limit int) ([]models.BillingTarget, error)
	ListActiveChargedAthletes(ctx context.Context, academyID, period string) ([]string, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, charges []models.Charge) (int, error)
}

type academyReader interface {
	FindByID(ctx context.Context, id string) (*models.Academy, error)
}

type feeLookup interface {
	Resolve(ctx context.Context, groupID string) (models.GroupFee, error)
}

// ChargeGeneratorConfig governs generator behaviour.
type ChargeGeneratorConfig struct {
	DefaultCurrency string
	MaxPopulation   int
	LockTTL         time.Duration
}

// ChargeGeneratorService creates one pending monthly charge per billable athlete.
type ChargeGeneratorService struct {
	charges   chargeGeneratorStore
	academies academyReader
	fees      feeLookup
	locks     runLocker
	tx        database.TxBeginner
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       ChargeGeneratorConfig
}

// NewChargeGeneratorService wires generator dependencies.
func NewChargeGeneratorService(
	charges chargeGeneratorStore,
	academies academyReader,
	fees feeLookup,
	locks runLocker,
	tx database.TxBeginner,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg ChargeGeneratorConfig,
) *ChargeGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "BRL"
	}
	if cfg.MaxPopulation <= 0 {
		cfg.MaxPopulation = 1000
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &ChargeGeneratorService{
		charges:   charges,
		academies: academies,
		fees:      fees,
		locks:     locks,
		tx:        tx,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// GenerateMonthlyCharges bills the academy's active athletes for period. With skipDuplicates a second
// run for the same period creates nothing; the active-charge unique index enforces the same under races.
func (s *ChargeGeneratorService) GenerateMonthlyCharges(ctx context.Context, req dto.GenerateChargesRequest) (*dto.ChargeGenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid charge generation payload")
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	academy, err := s.academies.FindByID(ctx, req.AcademyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academy not found")
		}
		return nil, appErrors.Persistence(err, "failed to load academy")
	}
	if req.TenantID != "" && academy.TenantID != req.TenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academy not found")
	}

	lock, err := acquireRunLock(ctx, s.locks, fmt.Sprintf("lock:charges:%s:%s", academy.ID, period), s.cfg.LockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	targets, err := s.charges.ListBillingTargets(ctx, academy.ID, req.GroupID, s.cfg.MaxPopulation+1)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load billing population")
	}
	if len(targets) > s.cfg.MaxPopulation {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("billing population exceeds %d athletes; scope the run to a group", s.cfg.MaxPopulation))
	}

	skipDuplicates := req.ShouldSkipDuplicates()
	charged := map[string]struct{}{}
	if skipDuplicates {
		ids, err := s.charges.ListActiveChargedAthletes(ctx, academy.ID, period.String())
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to load existing charges")
		}
		for _, id := range ids {
			charged[id] = struct{}{}
		}
	}

	currency := academy.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	result := &dto.ChargeGenerationResult{
		AcademyID:   academy.ID,
		Period:      period.String(),
		SkipReasons: map[string]int{},
		Errors:      []string{},
	}
	skip := func(reason string) {
		result.Skipped++
		result.SkipReasons[reason]++
	}

	staged := make([]models.Charge, 0, len(targets))
	for _, target := range targets {
		if target.GroupID == nil || *target.GroupID == "" {
			skip(dto.SkipReasonNoGroup)
			continue
		}
		fee, err := s.fees.Resolve(ctx, *target.GroupID)
		if err != nil {
			skip(dto.SkipReasonFeeError)
			result.Errors = append(result.Errors, fmt.Sprintf("athlete %s: resolve fee for group %s: %v", target.AthleteID, *target.GroupID, err))
			continue
		}
		if fee.MonthlyFeeCents <= 0 {
			skip(dto.SkipReasonZeroFee)
			continue
		}
		if _, dup := charged[target.AthleteID]; dup {
			skip(dto.SkipReasonDuplicate)
			continue
		}
		groupID := *target.GroupID
		staged = append(staged, models.Charge{
			TenantID:    academy.TenantID,
			AcademyID:   academy.ID,
			AthleteID:   target.AthleteID,
			Period:      period.String(),
			AmountCents: fee.MonthlyFeeCents,
			Currency:    currency,
			Description: fmt.Sprintf("%s - %s", fee.GroupName, period.Label()),
			DueDate:     period.DueDate(),
			Status:      models.ChargePending,
			Source:      models.ChargeSourceMonthly,
			GroupID:     &groupID,
		})
	}

	if len(staged) > 0 {
		inserted, err := s.insertCharges(ctx, staged)
		if err != nil {
			s.metrics.RecordGeneratorFailure("charges", appErrors.ErrPersistence.Code)
			return nil, appErrors.Persistence(err, "failed to insert charges")
		}
		result.Created = inserted
		for i := inserted; i < len(staged); i++ {
			skip(dto.SkipReasonDuplicate)
		}
	}

	s.metrics.RecordChargeGeneration(result.Created, result.SkipReasons)
	s.logger.Info("monthly charges generated",
		zap.String("academy_id", academy.ID),
		zap.String("period", result.Period),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *ChargeGeneratorService) insertCharges(ctx context.Context, staged []models.Charge) (int, error) {
	if s.tx == nil {
		return s.charges.BulkInsert(ctx, nil, staged)
	}
	inserted := 0
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		n, err := s.charges.BulkInsert(ctx, tx, staged)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
