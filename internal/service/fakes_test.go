package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/internal/repository"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func clockPtr(h, m int) *models.Clock {
	c := models.NewClock(h, m)
	return &c
}

func strPtr(s string) *string { return &s }

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type fakeClassRepo struct {
	classes   map[string]models.ClassTemplate
	weekdays  map[string][]models.Weekday
	findCalls int
	mu        sync.Mutex
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.ClassTemplate, error) {
	f.mu.Lock()
	f.findCalls++
	f.mu.Unlock()
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func (f *fakeClassRepo) ListWeekdays(ctx context.Context, classID string) ([]models.Weekday, error) {
	return f.weekdays[classID], nil
}

func (f *fakeClassRepo) ListAutoGenerate(ctx context.Context, academyID string) ([]models.ClassTemplate, error) {
	var out []models.ClassTemplate
	for _, c := range f.classes {
		if c.AcademyID == academyID && c.AutoGenerate {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeExceptionRepo struct {
	dates   map[string][]time.Time
	created []models.ClassException
	err     error
}

func (f *fakeExceptionRepo) ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.dates[classID] {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeExceptionRepo) Create(ctx context.Context, exception *models.ClassException) error {
	if f.err != nil {
		return f.err
	}
	exception.ID = "exception-1"
	f.created = append(f.created, *exception)
	return nil
}

type fakeSessionRepo struct {
	mu          sync.Mutex
	sessions    map[string]map[string]models.ClassSession
	raced       map[string]bool
	insertErr   error
	createErr   error
	insertCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]map[string]models.ClassSession{}, raced: map[string]bool{}}
}

func (f *fakeSessionRepo) ListDates(ctx context.Context, classID string, from, to time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, s := range f.sessions[classID] {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s.Date)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) BulkInsert(ctx context.Context, exec sqlx.ExtContext, sessions []models.ClassSession) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	inserted := 0
	for _, s := range sessions {
		key := models.DateKey(s.Date)
		if f.raced[key] {
			continue
		}
		if f.sessions[s.ClassID] == nil {
			f.sessions[s.ClassID] = map[string]models.ClassSession{}
		}
		if _, exists := f.sessions[s.ClassID][key]; exists {
			continue
		}
		f.sessions[s.ClassID][key] = s
		inserted++
	}
	return inserted, nil
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	_, err := f.BulkInsert(ctx, nil, []models.ClassSession{*session})
	session.ID = "session-1"
	return err
}

func (f *fakeSessionRepo) count(classID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions[classID])
}

type heldLocker struct{}

func (heldLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*repository.Lock, error) {
	return nil, nil
}

type failingLocker struct{}

func (failingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*repository.Lock, error) {
	return nil, context.DeadlineExceeded
}
