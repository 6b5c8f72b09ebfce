package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/internal/recurrence"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

// SkipReasonAutoGenerateDisabled marks classes whose automatic generation is switched off.
const SkipReasonAutoGenerateDisabled = "auto_generate_disabled"

type materializerClassReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassTemplate, error)
	ListWeekdays(ctx context.Context, classID string) ([]models.Weekday, error)
	ListAutoGenerate(ctx context.Context, academyID string) ([]models.ClassTemplate, error)
}

type exceptionDateReader interface {
	ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error)
}

type sessionWriter interface {
	ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, sessions []models.ClassSession) (int, error)
}

// MaterializerConfig governs materializer behaviour.
type MaterializerConfig struct {
	DefaultWeeksAhead int
	MaxRangeDays      int
	Workers           int
	LockTTL           time.Duration
	Location          *time.Location
}

// SessionMaterializerService turns weekly class templates into dated sessions.
type SessionMaterializerService struct {
	classes    materializerClassReader
	exceptions exceptionDateReader
	sessions   sessionWriter
	locks      runLocker
	tx         database.TxBeginner
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	cfg        MaterializerConfig
	now        func() time.Time
}

// NewSessionMaterializerService wires materializer dependencies.
func NewSessionMaterializerService(
	classes materializerClassReader,
	exceptions exceptionDateReader,
	sessions sessionWriter,
	locks runLocker,
	tx database.TxBeginner,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg MaterializerConfig,
) *SessionMaterializerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultWeeksAhead <= 0 {
		cfg.DefaultWeeksAhead = 4
	}
	if cfg.MaxRangeDays <= 0 || cfg.MaxRangeDays > recurrence.MaxRangeDays {
		cfg.MaxRangeDays = recurrence.MaxRangeDays
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SessionMaterializerService{
		classes:    classes,
		exceptions: exceptions,
		sessions:   sessions,
		locks:      locks,
		tx:         tx,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Materialize inserts the missing sessions of one class over the requested window. Running it twice
// for the same class and range generates nothing the second time.
func (s *SessionMaterializerService) Materialize(ctx context.Context, req dto.MaterializeSessionsRequest) (*dto.MaterializeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid materialization payload")
	}
	from, to, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}

	result := &dto.MaterializeResult{
		ClassID: req.ClassID,
		From:    models.DateKey(from),
		To:      models.DateKey(to),
		Errors:  []string{},
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("class %s not found", req.ClassID))
		}
		return nil, appErrors.Persistence(err, "failed to load class")
	}
	if req.TenantID != "" && class.TenantID != req.TenantID {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("class %s not found", req.ClassID))
	}
	if !class.AutoGenerate {
		result.SkipReason = SkipReasonAutoGenerateDisabled
		return result, nil
	}

	lock, err := acquireRunLock(ctx, s.locks, "lock:materialize:"+class.ID, s.cfg.LockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	weekdays, err := s.classes.ListWeekdays(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load class weekdays")
	}
	if len(weekdays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("class %s has no weekdays configured", class.ID))
	}

	candidates, err := recurrence.Expand(weekdays, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid recurrence rule")
	}

	exceptionDates, err := s.exceptions.ListDates(ctx, class.ID, from, to)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load class exceptions")
	}
	existingDates, err := s.sessions.ListDates(ctx, class.ID, from, to)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load existing sessions")
	}
	exceptions := dateSet(exceptionDates)
	existing := dateSet(existingDates)

	staged := make([]models.ClassSession, 0, len(candidates))
	for _, date := range candidates {
		key := models.DateKey(date)
		if _, skip := exceptions[key]; skip {
			result.Skipped++
			continue
		}
		if _, skip := existing[key]; skip {
			result.Skipped++
			continue
		}
		staged = append(staged, models.ClassSession{
			TenantID:  class.TenantID,
			ClassID:   class.ID,
			Date:      date,
			StartTime: class.StartTime,
			EndTime:   class.EndTime,
			Status:    models.SessionScheduled,
			CoachID:   class.CoachID,
			Origin:    models.SessionOriginGenerated,
		})
	}

	if len(staged) > 0 {
		inserted, err := s.insertSessions(ctx, staged)
		if err != nil {
			s.metrics.RecordGeneratorFailure("materializer", appErrors.ErrPersistence.Code)
			return nil, appErrors.Persistence(err, "failed to insert sessions")
		}
		result.Generated = inserted
		// Rows taken by a concurrent run were already present by the time we wrote.
		result.Skipped += len(staged) - inserted
	}

	s.metrics.RecordMaterialization(result.Generated, result.Skipped)
	s.logger.Info("sessions materialized",
		zap.String("class_id", class.ID),
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// MaterializeAcademy materializes every auto-generating class of an academy with bounded
// parallelism. Failures of one class are reported without stopping the others.
func (s *SessionMaterializerService) MaterializeAcademy(ctx context.Context, req dto.MaterializeAcademyRequest) (*dto.MaterializeAcademyResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid materialization payload")
	}
	classes, err := s.classes.ListAutoGenerate(ctx, req.AcademyID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list classes")
	}

	out := &dto.MaterializeAcademyResult{
		AcademyID: req.AcademyID,
		Classes:   make([]dto.MaterializeResult, len(classes)),
		Errors:    []string{},
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)
	for i, class := range classes {
		i, class := i, class
		if req.TenantID != "" && class.TenantID != req.TenantID {
			continue
		}
		g.Go(func() error {
			res, err := s.Materialize(ctx, dto.MaterializeSessionsRequest{
				TenantID:   class.TenantID,
				ClassID:    class.ID,
				WeeksAhead: req.WeeksAhead,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				msg := fmt.Sprintf("class %s: %s", class.ID, appErrors.FromError(err).Error())
				out.Classes[i] = dto.MaterializeResult{ClassID: class.ID, Errors: []string{msg}}
				out.Errors = append(out.Errors, msg)
				return nil
			}
			out.Classes[i] = *res
			out.Generated += res.Generated
			out.Skipped += res.Skipped
			return nil
		})
	}
	_ = g.Wait()

	filled := out.Classes[:0]
	for _, res := range out.Classes {
		if res.ClassID != "" {
			filled = append(filled, res)
		}
	}
	out.Classes = filled

	s.logger.Info("academy sessions materialized",
		zap.String("academy_id", req.AcademyID),
		zap.Int("classes", len(out.Classes)),
		zap.Int("generated", out.Generated),
		zap.Int("skipped", out.Skipped),
		zap.Int("errors", len(out.Errors)),
	)
	return out, nil
}

func (s *SessionMaterializerService) insertSessions(ctx context.Context, staged []models.ClassSession) (int, error) {
	if s.tx == nil {
		return s.sessions.BulkInsert(ctx, nil, staged)
	}
	inserted := 0
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		n, err := s.sessions.BulkInsert(ctx, tx, staged)
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

func (s *SessionMaterializerService) resolveRange(req dto.MaterializeSessionsRequest) (time.Time, time.Time, error) {
	today := models.DateOf(s.now().In(s.cfg.Location))
	from := today
	if req.From != "" {
		parsed, err := models.ParseDate(req.From)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		from = parsed
	}

	var to time.Time
	if req.To != "" {
		parsed, err := models.ParseDate(req.To)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		to = parsed
	} else {
		weeks := req.WeeksAhead
		if weeks <= 0 {
			weeks = s.cfg.DefaultWeeksAhead
		}
		to = from.AddDate(0, 0, weeks*7)
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if to.Sub(from) > time.Duration(s.cfg.MaxRangeDays)*24*time.Hour {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range %s..%s exceeds %d days", models.DateKey(from), models.DateKey(to), s.cfg.MaxRangeDays))
	}
	return from, to, nil
}

func dateSet(dates []time.Time) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[models.DateKey(d)] = struct{}{}
	}
	return set
}
