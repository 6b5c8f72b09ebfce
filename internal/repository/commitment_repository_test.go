package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/models"
)

func TestCommitmentRepositoryListAthleteBase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "weekdays"}).
		AddRow("class-1", "Judo Kids", "18:00:00", "19:00:00", "{1,3}").
		AddRow("class-2", "Open Mat", nil, nil, "{6}")
	mock.ExpectQuery(regexp.QuoteMeta("FROM group_members gm")).
		WithArgs("athlete-1", "tenant-1").
		WillReturnRows(rows)

	commitments, err := repo.ListAthleteBase(context.Background(), "tenant-1", "athlete-1")
	require.NoError(t, err)
	require.Len(t, commitments, 2)
	assert.Equal(t, models.CommitmentBase, commitments[0].Kind)
	assert.Equal(t, []models.Weekday{models.Monday, models.Wednesday}, commitments[0].Weekdays)
	assert.Nil(t, commitments[1].Start)

	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window, ok := commitments[0].WindowOn(monday)
	require.True(t, ok)
	assert.Equal(t, models.NewClock(18, 0), window.Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryListCoachBase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ct.coach_id = $1 AND ($2 = '' OR ct.tenant_id = $2)")).
		WithArgs("coach-1", "tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "weekdays"}).
			AddRow("class-1", "Judo Kids", "18:00:00", "19:00:00", "{1}"))

	commitments, err := repo.ListCoachBase(context.Background(), "tenant-1", "coach-1")
	require.NoError(t, err)
	assert.Len(t, commitments, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryListAthleteExtra(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM athlete_extra_classes ae")).
		WithArgs("athlete-1", day, "").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "session_date"}).
			AddRow("class-3", "Competition Prep", "10:00:00", "11:30:00", day))

	commitments, err := repo.ListAthleteExtra(context.Background(), "", "athlete-1", day.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, commitments, 1)
	assert.Equal(t, models.CommitmentExtra, commitments[0].Kind)
	_, ok := commitments[0].WindowOn(day)
	assert.True(t, ok)
	_, ok = commitments[0].WindowOn(day.AddDate(0, 0, 7))
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryListCoachExtra(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions cs")).
		WithArgs("coach-1", day, "tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "session_date"}))

	commitments, err := repo.ListCoachExtra(context.Background(), "tenant-1", "coach-1", day)
	require.NoError(t, err)
	assert.Empty(t, commitments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryScopesCommitmentsToTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE gm.athlete_id = $1 AND ($2 = '' OR ct.tenant_id = $2)")).
		WithArgs("athlete-1", "tenant-2").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "weekdays"}))
	mock.ExpectQuery(regexp.QuoteMeta("AND ($3 = '' OR cs.tenant_id = $3)")).
		WithArgs("coach-1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "tenant-2").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "start_time", "end_time", "session_date"}))

	base, err := repo.ListAthleteBase(context.Background(), "tenant-2", "athlete-1")
	require.NoError(t, err)
	assert.Empty(t, base)
	extra, err := repo.ListCoachExtra(context.Background(), "tenant-2", "coach-1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, extra)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryResourceTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT tenant_id FROM athletes WHERE id = $1")).
		WithArgs("athlete-1").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow("tenant-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT tenant_id FROM coaches WHERE id = $1")).
		WithArgs("coach-9").
		WillReturnError(sql.ErrNoRows)

	tenantID, err := repo.ResourceTenant(context.Background(), models.ResourceAthlete, "athlete-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenantID)

	_, err = repo.ResourceTenant(context.Background(), models.ResourceCoach, "coach-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = repo.ResourceTenant(context.Background(), models.ResourceKind("room"), "room-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitmentRepositoryCreateExtraClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCommitmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO athlete_extra_classes")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	extra := &models.AthleteExtraClass{AthleteID: "athlete-1", ClassID: "class-3", Date: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.CreateExtraClass(context.Background(), extra))
	assert.NotEmpty(t, extra.ID)
	assert.Equal(t, 0, extra.Date.Hour())
	assert.NoError(t, mock.ExpectationsWereMet())
}
