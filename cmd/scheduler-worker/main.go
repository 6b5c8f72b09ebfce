package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/app"
	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/service"
	"github.com/noah-isme/academy-scheduling/pkg/cache"
	"github.com/noah-isme/academy-scheduling/pkg/config"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	"github.com/noah-isme/academy-scheduling/pkg/jobs"
	"github.com/noah-isme/academy-scheduling/pkg/logger"
)

var (
	runOnce = flag.String("run-once", "", "Run one job (materialize_sessions, generate_charges, mark_overdue, prune_statements) and exit")
	academy = flag.String("academy", "", "Academy ID to target with --run-once; empty fans out over every academy")
	period  = flag.String("period", "", "Billing period (YYYY-MM) for --run-once=generate_charges")
	weeks   = flag.Int("weeks-ahead", 0, "Weeks ahead for --run-once=materialize_sessions")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, run locks disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
	} else {
		defer rdb.Close()
	}

	svc := app.Build(cfg, db, rdb, logr)
	router := jobs.NewRouter()
	svc.Jobs.Register(router)

	if *runOnce != "" {
		job, err := manualJob(*runOnce, *academy, *period, *weeks)
		if err != nil {
			logr.Fatal("invalid run-once request", zap.Error(err))
		}
		if err := router.Dispatch(context.Background(), job); err != nil {
			logr.Fatal("job failed", zap.String("job_type", job.Type), zap.Error(err))
		}
		logr.Info("job completed", zap.String("job_type", job.Type))
		return
	}

	queue := jobs.NewQueue("scheduler", router.Dispatch, jobs.QueueConfig{
		Workers:     cfg.Worker.Concurrency,
		MaxRetries:  cfg.Worker.Retries,
		RetryDelay:  cfg.Worker.RetryDelay,
		Logger:      logr.Named("queue"),
		ShouldRetry: service.ShouldRetry,
		OnDone: func(job jobs.Job, err error, took time.Duration) {
			if err != nil {
				logr.Warn("job attempt failed", zap.String("job_type", job.Type), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Duration("took", took), zap.Error(err))
			}
		},
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)

	scheduler := cron.New(cron.WithLocation(cfg.Scheduling.Location()))
	schedules := []struct {
		expr    string
		jobType string
		enabled bool
	}{
		{cfg.Worker.MaterializeCron, service.JobMaterializeSessions, cfg.Scheduling.Enabled},
		{cfg.Worker.ChargesCron, service.JobGenerateCharges, cfg.Billing.Enabled},
		{cfg.Worker.OverdueCron, service.JobMarkOverdue, cfg.Billing.Enabled},
		{cfg.Worker.PruneCron, service.JobPruneStatements, cfg.Billing.Enabled},
	}
	for _, s := range schedules {
		if !s.enabled || s.expr == "" {
			logr.Info("job schedule disabled", zap.String("job_type", s.jobType))
			continue
		}
		jobType := s.jobType
		if _, err := scheduler.AddFunc(s.expr, func() {
			if err := queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType}); err != nil {
				logr.Error("enqueue scheduled job", zap.String("job_type", jobType), zap.Error(err))
			}
		}); err != nil {
			logr.Fatal("invalid cron schedule", zap.String("job_type", jobType), zap.String("cron", s.expr), zap.Error(err))
		}
		logr.Info("job scheduled", zap.String("job_type", jobType), zap.String("cron", s.expr))
	}

	scheduler.Start()
	logr.Info("scheduler worker started", zap.String("timezone", cfg.Scheduling.Location().String()))

	<-ctx.Done()
	logr.Info("shutting down scheduler worker")
	<-scheduler.Stop().Done()
	queue.Stop()
}

// manualJob builds the job for a --run-once invocation. Without an academy the job fans out.
func manualJob(jobType, academyID, billingPeriod string, weeksAhead int) (jobs.Job, error) {
	job := jobs.Job{ID: "manual-" + uuid.NewString(), Type: jobType}
	switch jobType {
	case service.JobMaterializeSessions:
		if academyID != "" {
			job.Payload = dto.MaterializeAcademyRequest{AcademyID: academyID, WeeksAhead: weeksAhead}
		}
	case service.JobGenerateCharges:
		if academyID != "" {
			if billingPeriod == "" {
				return jobs.Job{}, fmt.Errorf("--period is required with --academy for %s", jobType)
			}
			job.Payload = dto.GenerateChargesRequest{AcademyID: academyID, Period: billingPeriod}
		}
	case service.JobMarkOverdue, service.JobPruneStatements:
	default:
		return jobs.Job{}, fmt.Errorf("unknown job %q", jobType)
	}
	return job, nil
}
