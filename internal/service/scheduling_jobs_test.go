package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
	"github.com/noah-isme/academy-scheduling/pkg/jobs"
)

type recordingGenerators struct {
	mu           sync.Mutex
	materialized []dto.MaterializeAcademyRequest
	charged      []dto.GenerateChargesRequest
	sweeps       int
	failAcademy  string
	failures     map[string]error
}

func (r *recordingGenerators) MaterializeAcademy(ctx context.Context, req dto.MaterializeAcademyRequest) (*dto.MaterializeAcademyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materialized = append(r.materialized, req)
	if err, ok := r.failures[req.AcademyID]; ok {
		return nil, err
	}
	if req.AcademyID == r.failAcademy {
		return nil, appErrors.Persistence(errors.New("db down"), "failed to list classes")
	}
	return &dto.MaterializeAcademyResult{AcademyID: req.AcademyID, Errors: []string{}}, nil
}

func (r *recordingGenerators) GenerateMonthlyCharges(ctx context.Context, req dto.GenerateChargesRequest) (*dto.ChargeGenerationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charged = append(r.charged, req)
	if req.AcademyID == r.failAcademy {
		return nil, appErrors.Clone(appErrors.ErrRunInProgress, "busy")
	}
	return &dto.ChargeGenerationResult{AcademyID: req.AcademyID, Period: req.Period, Errors: []string{}}, nil
}

func (r *recordingGenerators) MarkOverdue(ctx context.Context) (*dto.OverdueSweepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	return &dto.OverdueSweepResult{AsOf: "2025-03-01"}, nil
}

type staticAcademies []string

func (s staticAcademies) ListAcademiesWithAutoGenerate(ctx context.Context) ([]string, error) {
	return s, nil
}

func (s staticAcademies) ListIDs(ctx context.Context) ([]string, error) {
	return s, nil
}

func newJobsFixture(gen *recordingGenerators) (*jobs.Router, *MetricsService) {
	metrics := NewMetricsService()
	j := NewSchedulingJobs(gen, gen, gen, staticAcademies{"academy-1", "academy-2"}, staticAcademies{"academy-1", "academy-2"}, nil, metrics, SchedulingJobsConfig{WeeksAhead: 6})
	j.now = func() time.Time { return time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC) }
	router := jobs.NewRouter()
	j.Register(router)
	return router, metrics
}

func TestSchedulingJobsFanOutWithoutPayload(t *testing.T) {
	gen := &recordingGenerators{}
	router, _ := newJobsFixture(gen)

	require.NoError(t, router.Dispatch(context.Background(), jobs.Job{ID: "1", Type: JobMaterializeSessions}))
	require.Len(t, gen.materialized, 2)
	assert.Equal(t, "academy-2", gen.materialized[1].AcademyID)
	assert.Equal(t, 6, gen.materialized[0].WeeksAhead)

	require.NoError(t, router.Dispatch(context.Background(), jobs.Job{ID: "2", Type: JobGenerateCharges}))
	require.Len(t, gen.charged, 2)
	assert.Equal(t, "2025-03", gen.charged[0].Period)
	assert.True(t, gen.charged[0].ShouldSkipDuplicates())
}

func TestSchedulingJobsTargetedPayload(t *testing.T) {
	gen := &recordingGenerators{}
	router, _ := newJobsFixture(gen)

	err := router.Dispatch(context.Background(), jobs.Job{Type: JobGenerateCharges, Payload: dto.GenerateChargesRequest{AcademyID: "academy-9", Period: "2025-01"}})
	require.NoError(t, err)
	require.Len(t, gen.charged, 1)
	assert.Equal(t, "2025-01", gen.charged[0].Period)

	require.NoError(t, router.Dispatch(context.Background(), jobs.Job{Type: JobMarkOverdue}))
	assert.Equal(t, 1, gen.sweeps)
}

func TestSchedulingJobsJoinsFailuresAndKeepsGoing(t *testing.T) {
	gen := &recordingGenerators{failAcademy: "academy-1"}
	router, _ := newJobsFixture(gen)

	err := router.Dispatch(context.Background(), jobs.Job{Type: JobMaterializeSessions})
	require.Error(t, err)
	assert.Len(t, gen.materialized, 2)
	assert.True(t, ShouldRetry(err))

	err = router.Dispatch(context.Background(), jobs.Job{Type: JobGenerateCharges})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRunInProgress))
}

func TestSchedulingJobsRetriesWhenAnyAcademyFailureIsTransient(t *testing.T) {
	gen := &recordingGenerators{failures: map[string]error{
		"academy-1": appErrors.Clone(appErrors.ErrValidation, "weeksAhead out of range"),
		"academy-2": appErrors.Persistence(errors.New("db down"), "failed to list classes"),
	}}
	router, _ := newJobsFixture(gen)

	err := router.Dispatch(context.Background(), jobs.Job{Type: JobMaterializeSessions})
	require.Error(t, err)
	assert.Len(t, gen.materialized, 2)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.True(t, ShouldRetry(err))

	gen.failures["academy-2"] = appErrors.Clone(appErrors.ErrNotFound, "academy not found")
	err = router.Dispatch(context.Background(), jobs.Job{Type: JobMaterializeSessions})
	require.Error(t, err)
	assert.False(t, ShouldRetry(err))
}

func TestSchedulingJobsRejectsUnexpectedPayload(t *testing.T) {
	router, _ := newJobsFixture(&recordingGenerators{})

	err := router.Dispatch(context.Background(), jobs.Job{Type: JobMaterializeSessions, Payload: "academy-1"})
	require.Error(t, err)
	assert.False(t, ShouldRetry(err))

	var unknown *jobs.UnknownTypeError
	assert.True(t, errors.As(router.Dispatch(context.Background(), jobs.Job{Type: "reindex"}), &unknown))
}

type countingPruner struct{ calls int }

func (p *countingPruner) Prune(ctx context.Context) (*dto.StatementPruneResult, error) {
	p.calls++
	return &dto.StatementPruneResult{Removed: []string{"academy-1/old.csv"}}, nil
}

func TestSchedulingJobsStatementPruneIsOptional(t *testing.T) {
	router, _ := newJobsFixture(&recordingGenerators{})
	var unknown *jobs.UnknownTypeError
	assert.True(t, errors.As(router.Dispatch(context.Background(), jobs.Job{Type: JobPruneStatements}), &unknown))

	pruner := &countingPruner{}
	j := NewSchedulingJobs(&recordingGenerators{}, &recordingGenerators{}, &recordingGenerators{}, staticAcademies{}, staticAcademies{}, nil, nil, SchedulingJobsConfig{}).
		WithStatementPruner(pruner)
	enabled := jobs.NewRouter()
	j.Register(enabled)

	require.NoError(t, enabled.Dispatch(context.Background(), jobs.Job{Type: JobPruneStatements}))
	assert.Equal(t, 1, pruner.calls)
}
