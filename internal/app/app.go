// Package app assembles repositories and services shared by the API gateway and the scheduler worker.
package app

import (
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/repository"
	"github.com/noah-isme/academy-scheduling/internal/service"
	"github.com/noah-isme/academy-scheduling/pkg/config"
	"github.com/noah-isme/academy-scheduling/pkg/storage"
)

// Repositories groups the storage adapters.
type Repositories struct {
	Classes     *repository.ClassTemplateRepository
	Exceptions  *repository.ClassExceptionRepository
	Sessions    *repository.ClassSessionRepository
	Commitments *repository.CommitmentRepository
	Charges     *repository.ChargeRepository
	GroupFees   *repository.GroupFeeRepository
	Academies   *repository.AcademyRepository
	Locks       *repository.LockRepository
}

// Services groups the domain services.
type Services struct {
	Repos        Repositories
	Metrics      *service.MetricsService
	Tokens       *service.TokenVerifier
	Materializer *service.SessionMaterializerService
	Conflicts    *service.ConflictService
	Commitments  *service.CommitmentService
	Exceptions   *service.ClassExceptionService
	Fees         *service.FeeResolver
	Charges      *service.ChargeGeneratorService
	ChargeStatus *service.ChargeStatusService
	Export       *service.ChargeExportService
	Statements   *service.StatementArchiveService
	Jobs         *service.SchedulingJobs
}

// Build wires every service from cfg. A nil redis client disables run locks.
func Build(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, logger *zap.Logger) *Services {
	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Scheduling.Location()

	repos := Repositories{
		Classes:     repository.NewClassTemplateRepository(db),
		Exceptions:  repository.NewClassExceptionRepository(db),
		Sessions:    repository.NewClassSessionRepository(db),
		Commitments: repository.NewCommitmentRepository(db),
		Charges:     repository.NewChargeRepository(db),
		GroupFees:   repository.NewGroupFeeRepository(db),
		Academies:   repository.NewAcademyRepository(db),
		Locks:       repository.NewLockRepository(rdb, logger.Named("locks")),
	}

	materializer := service.NewSessionMaterializerService(
		repos.Classes, repos.Exceptions, repos.Sessions, repos.Locks, db, validate,
		logger.Named("materializer"), metrics,
		service.MaterializerConfig{
			DefaultWeeksAhead: cfg.Scheduling.DefaultWeeksAhead,
			MaxRangeDays:      cfg.Scheduling.MaxRangeDays,
			Workers:           cfg.Scheduling.Workers,
			LockTTL:           cfg.Scheduling.LockTTL,
			Location:          loc,
		},
	)
	conflicts := service.NewConflictService(repos.Commitments, validate, logger.Named("conflicts"), metrics, loc)
	commitments := service.NewCommitmentService(repos.Classes, repos.Commitments, repos.Sessions, conflicts, repos.Locks, cfg.Scheduling.LockTTL, validate, logger.Named("commitments"))
	exceptions := service.NewClassExceptionService(repos.Classes, repos.Exceptions, validate, logger.Named("exceptions"))

	fees := service.NewFeeResolver(repos.GroupFees, cfg.Billing.FeeCacheSize, cfg.Billing.FeeCacheTTL, metrics)
	charges := service.NewChargeGeneratorService(
		repos.Charges, repos.Academies, fees, repos.Locks, db, validate,
		logger.Named("charges"), metrics,
		service.ChargeGeneratorConfig{
			DefaultCurrency: cfg.Billing.DefaultCurrency,
			MaxPopulation:   cfg.Billing.MaxPopulation,
			LockTTL:         cfg.Scheduling.LockTTL,
		},
	)
	chargeStatus := service.NewChargeStatusService(repos.Charges, validate, logger.Named("charge_status"), loc)
	export := service.NewChargeExportService(repos.Charges, repos.Academies, validate, logger.Named("export"))

	statements := service.NewStatementArchiveService(
		export,
		storage.NewLocalStorage(cfg.Billing.StatementDir),
		storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Billing.StatementLinkTTL),
		logger.Named("statements"),
		service.StatementArchiveConfig{
			DownloadPath: cfg.APIPrefix + "/statements",
			Retention:    cfg.Billing.StatementRetention,
		},
	)

	jobs := service.NewSchedulingJobs(materializer, charges, chargeStatus, repos.Classes, repos.Academies, logger.Named("jobs"), metrics, service.SchedulingJobsConfig{
		WeeksAhead: cfg.Worker.WeeksAhead,
		Location:   loc,
	}).WithStatementPruner(statements)

	return &Services{
		Repos:        repos,
		Metrics:      metrics,
		Tokens:       service.NewTokenVerifier(cfg.JWT.Secret),
		Materializer: materializer,
		Conflicts:    conflicts,
		Commitments:  commitments,
		Exceptions:   exceptions,
		Fees:         fees,
		Charges:      charges,
		ChargeStatus: chargeStatus,
		Export:       export,
		Statements:   statements,
		Jobs:         jobs,
	}
}
