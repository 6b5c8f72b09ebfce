package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
	"github.com/noah-isme/academy-scheduling/pkg/jobs"
	"github.com/noah-isme/academy-scheduling/pkg/logger"
)

// Job types handled by the scheduler worker.
const (
	JobMaterializeSessions = "materialize_sessions"
	JobGenerateCharges     = "generate_charges"
	JobMarkOverdue         = "mark_overdue"
	JobPruneStatements     = "prune_statements"
)

type academyMaterializer interface {
	MaterializeAcademy(ctx context.Context, req dto.MaterializeAcademyRequest) (*dto.MaterializeAcademyResult, error)
}

type monthlyChargeGenerator interface {
	GenerateMonthlyCharges(ctx context.Context, req dto.GenerateChargesRequest) (*dto.ChargeGenerationResult, error)
}

type overdueSweeper interface {
	MarkOverdue(ctx context.Context) (*dto.OverdueSweepResult, error)
}

type statementPruner interface {
	Prune(ctx context.Context) (*dto.StatementPruneResult, error)
}

type schedulingAcademyLister interface {
	ListAcademiesWithAutoGenerate(ctx context.Context) ([]string, error)
}

type billingAcademyLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// SchedulingJobsConfig governs scheduled job payload defaults.
type SchedulingJobsConfig struct {
	WeeksAhead int
	Location   *time.Location
}

// SchedulingJobs adapts the generators to background jobs. A job without payload fans out over every
// academy; a typed payload targets one academy.
type SchedulingJobs struct {
	materializer      academyMaterializer
	charges           monthlyChargeGenerator
	overdue           overdueSweeper
	schedulingTargets schedulingAcademyLister
	billingTargets    billingAcademyLister
	statements        statementPruner
	logger            *zap.Logger
	metrics           *MetricsService
	cfg               SchedulingJobsConfig
	now               func() time.Time
}

// NewSchedulingJobs wires job handlers.
func NewSchedulingJobs(
	materializer academyMaterializer,
	charges monthlyChargeGenerator,
	overdue overdueSweeper,
	schedulingTargets schedulingAcademyLister,
	billingTargets billingAcademyLister,
	log *zap.Logger,
	metrics *MetricsService,
	cfg SchedulingJobsConfig,
) *SchedulingJobs {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SchedulingJobs{
		materializer:      materializer,
		charges:           charges,
		overdue:           overdue,
		schedulingTargets: schedulingTargets,
		billingTargets:    billingTargets,
		logger:            log,
		metrics:           metrics,
		cfg:               cfg,
		now:               time.Now,
	}
}

// Register binds every job type onto router.
func (j *SchedulingJobs) Register(router *jobs.Router) {
	router.Handle(JobMaterializeSessions, j.instrument(j.materialize))
	router.Handle(JobGenerateCharges, j.instrument(j.generateCharges))
	router.Handle(JobMarkOverdue, j.instrument(j.markOverdue))
	if j.statements != nil {
		router.Handle(JobPruneStatements, j.instrument(j.pruneStatements))
	}
}

// WithStatementPruner enables the prune_statements job.
func (j *SchedulingJobs) WithStatementPruner(p statementPruner) *SchedulingJobs {
	j.statements = p
	return j
}

// ShouldRetry reports whether a failed job is worth another attempt.
func ShouldRetry(err error) bool {
	return appErrors.Retryable(err)
}

func (j *SchedulingJobs) instrument(h jobs.Handler) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		start := time.Now()
		err := h(ctx, job)
		j.metrics.ObserveJob(job.Type, err, time.Since(start))
		return err
	}
}

func (j *SchedulingJobs) materialize(ctx context.Context, job jobs.Job) error {
	log := logger.ForJob(j.logger, job.Type, job.ID)
	var targets []dto.MaterializeAcademyRequest
	switch payload := job.Payload.(type) {
	case dto.MaterializeAcademyRequest:
		targets = append(targets, payload)
	case nil:
		ids, err := j.schedulingTargets.ListAcademiesWithAutoGenerate(ctx)
		if err != nil {
			return appErrors.Persistence(err, "failed to list academies")
		}
		for _, id := range ids {
			targets = append(targets, dto.MaterializeAcademyRequest{AcademyID: id, WeeksAhead: j.cfg.WeeksAhead})
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected payload %T for %s", job.Payload, job.Type))
	}

	var errs []error
	for _, target := range targets {
		res, err := j.materializer.MaterializeAcademy(ctx, target)
		if err != nil {
			log.Error("academy materialization failed", zap.String("academy_id", target.AcademyID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		for _, msg := range res.Errors {
			log.Warn("class materialization failed", zap.String("academy_id", target.AcademyID), zap.String("error", msg))
		}
		log.Info("academy materialization finished",
			zap.String("academy_id", target.AcademyID),
			zap.Int("generated", res.Generated),
			zap.Int("skipped", res.Skipped),
		)
	}
	return errors.Join(errs...)
}

func (j *SchedulingJobs) generateCharges(ctx context.Context, job jobs.Job) error {
	log := logger.ForJob(j.logger, job.Type, job.ID)
	var targets []dto.GenerateChargesRequest
	switch payload := job.Payload.(type) {
	case dto.GenerateChargesRequest:
		targets = append(targets, payload)
	case nil:
		ids, err := j.billingTargets.ListIDs(ctx)
		if err != nil {
			return appErrors.Persistence(err, "failed to list academies")
		}
		period := models.PeriodOf(j.now().In(j.cfg.Location)).String()
		for _, id := range ids {
			targets = append(targets, dto.GenerateChargesRequest{AcademyID: id, Period: period})
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected payload %T for %s", job.Payload, job.Type))
	}

	var errs []error
	for _, target := range targets {
		res, err := j.charges.GenerateMonthlyCharges(ctx, target)
		if err != nil {
			log.Error("charge generation failed", zap.String("academy_id", target.AcademyID), zap.String("period", target.Period), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		log.Info("charge generation finished",
			zap.String("academy_id", res.AcademyID),
			zap.String("period", res.Period),
			zap.Int("created", res.Created),
			zap.Int("skipped", res.Skipped),
			zap.Strings("errors", res.Errors),
		)
	}
	return errors.Join(errs...)
}

func (j *SchedulingJobs) markOverdue(ctx context.Context, job jobs.Job) error {
	res, err := j.overdue.MarkOverdue(ctx)
	if err != nil {
		return err
	}
	logger.ForJob(j.logger, job.Type, job.ID).Info("overdue sweep finished", zap.String("as_of", res.AsOf), zap.Int64("updated", res.Updated))
	return nil
}

func (j *SchedulingJobs) pruneStatements(ctx context.Context, job jobs.Job) error {
	res, err := j.statements.Prune(ctx)
	if err != nil {
		return err
	}
	logger.ForJob(j.logger, job.Type, job.ID).Info("statement prune finished", zap.Int("removed", len(res.Removed)))
	return nil
}
