package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-scheduling/api/swagger"
	"github.com/noah-isme/academy-scheduling/internal/app"
	"github.com/noah-isme/academy-scheduling/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-scheduling/internal/middleware"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/pkg/cache"
	"github.com/noah-isme/academy-scheduling/pkg/config"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	"github.com/noah-isme/academy-scheduling/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-scheduling/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-scheduling/pkg/middleware/requestid"
)

// @title Academy Scheduling API
// @version 1.0.0
// @description Class session materialization, double-booking checks and monthly billing.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, run locks disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	svc := app.Build(cfg, db, rdb, logr)
	r := newRouter(cfg, svc, db, rdb, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

func newRouter(cfg *config.Config, svc *app.Services, db handler.Pinger, rdb *redis.Client, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(svc.Metrics, "/health", "/ready", "/metrics"))

	checks := map[string]handler.Pinger{"postgres": db}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return cache.Ping(ctx, rdb) })
	}
	metricsHandler := handler.NewMetricsHandler(svc.Metrics, checks)
	sessionHandler := handler.NewSessionHandler(svc.Materializer, svc.Commitments, svc.Exceptions)
	conflictHandler := handler.NewConflictHandler(svc.Conflicts, svc.Commitments)
	chargeHandler := handler.NewChargeHandler(svc.Charges, svc.Export, svc.ChargeStatus)
	statementHandler := handler.NewStatementHandler(svc.Statements)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	billingGate := internalmiddleware.FeatureGate(cfg.Billing.Enabled, "billing")
	r.Group(cfg.APIPrefix).GET("/statements/:token", billingGate, statementHandler.Download)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(svc.Tokens))

	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoach)
	admin := internalmiddleware.RequireRoles(models.RoleAdmin)

	api.GET("/metrics/summary", admin, metricsHandler.Summary)

	scheduling := api.Group("")
	scheduling.Use(internalmiddleware.FeatureGate(cfg.Scheduling.Enabled, "scheduling"))
	scheduling.POST("/classes/:id/sessions/materialize", admin, sessionHandler.MaterializeClass)
	scheduling.POST("/academies/:id/sessions/materialize", admin, sessionHandler.MaterializeAcademy)
	scheduling.POST("/classes/:id/sessions", staff, sessionHandler.CreateSession)
	scheduling.POST("/classes/:id/exceptions", staff, sessionHandler.CreateException)
	scheduling.POST("/conflicts/check", staff, conflictHandler.Check)
	scheduling.POST("/athletes/:id/extra-classes", staff, conflictHandler.AddExtraClass)

	billing := api.Group("")
	billing.Use(billingGate)
	billing.POST("/academies/:id/charges/generate", admin, chargeHandler.Generate)
	billing.GET("/academies/:id/charges/export", admin, chargeHandler.Export)
	billing.POST("/academies/:id/charges/statements", admin, statementHandler.Archive)
	billing.PATCH("/charges/:id/status", admin, chargeHandler.UpdateStatus)

	return r
}
