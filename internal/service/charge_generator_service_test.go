package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type fakeChargeStore struct {
	targets   []models.BillingTarget
	charges   []models.Charge
	raced     map[string]bool
	insertErr error
	lastLimit int
}

func (f *fakeChargeStore) ListBillingTargets(ctx context.Context, academyID string, groupID *string, limit int) ([]models.BillingTarget, error) {
	f.lastLimit = limit
	var out []models.BillingTarget
	for _, target := range f.targets {
		if groupID != nil && (target.GroupID == nil || *target.GroupID != *groupID) {
			continue
		}
		out = append(out, target)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeChargeStore) ListActiveChargedAthletes(ctx context.Context, academyID, period string) ([]string, error) {
	var out []string
	for _, c := range f.charges {
		if c.AcademyID == academyID && c.Period == period && c.Status.Active() {
			out = append(out, c.AthleteID)
		}
	}
	return out, nil
}

// BulkInsert mimics the partial unique index on active generated charges.
func (f *fakeChargeStore) BulkInsert(ctx context.Context, exec sqlx.ExtContext, charges []models.Charge) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	inserted := 0
	for _, c := range charges {
		if f.raced[c.AthleteID] || f.hasActive(c.AthleteID, c.Period) {
			continue
		}
		f.charges = append(f.charges, c)
		inserted++
	}
	return inserted, nil
}

func (f *fakeChargeStore) hasActive(athleteID, period string) bool {
	for _, c := range f.charges {
		if c.AthleteID == athleteID && c.Period == period && c.Status.Active() && c.Source == models.ChargeSourceMonthly {
			return true
		}
	}
	return false
}

type fakeAcademyRepo struct {
	academies map[string]models.Academy
}

func (f *fakeAcademyRepo) FindByID(ctx context.Context, id string) (*models.Academy, error) {
	academy, ok := f.academies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &academy, nil
}

type generatorFixture struct {
	store   *fakeChargeStore
	fees    *fakeGroupFeeRepo
	service *ChargeGeneratorService
}

func newGeneratorFixture(t *testing.T, cfg ChargeGeneratorConfig) *generatorFixture {
	t.Helper()
	store := &fakeChargeStore{
		raced: map[string]bool{},
		targets: []models.BillingTarget{
			{AthleteID: "ath-1", AthleteName: "Ana", GroupID: strPtr("g-kids")},
			{AthleteID: "ath-2", AthleteName: "Bruno", GroupID: strPtr("g-kids")},
			{AthleteID: "ath-3", AthleteName: "Carla", GroupID: strPtr("g-adults")},
		},
	}
	fees := &fakeGroupFeeRepo{fees: map[string]models.GroupFee{
		"g-kids":   {GroupID: "g-kids", GroupName: "Kids", MonthlyFeeCents: 12000},
		"g-adults": {GroupID: "g-adults", GroupName: "Adults", MonthlyFeeCents: 18000},
	}}
	academies := &fakeAcademyRepo{academies: map[string]models.Academy{
		"academy-1": {ID: "academy-1", TenantID: "tenant-1", Name: "Dojo", Currency: "USD"},
		"academy-2": {ID: "academy-2", TenantID: "tenant-1", Name: "Annex"},
	}}
	svc := NewChargeGeneratorService(store, academies, NewFeeResolver(fees, 16, 0, nil), nil, nil, nil, nil, nil, cfg)
	return &generatorFixture{store: store, fees: fees, service: svc}
}

func marchRequest() dto.GenerateChargesRequest {
	return dto.GenerateChargesRequest{AcademyID: "academy-1", Period: "2025-03"}
}

func TestGenerateMonthlyChargesIsIdempotent(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})

	first, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, "2025-03", first.Period)

	second, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 3, second.SkipReasons[dto.SkipReasonDuplicate])
	assert.Len(t, fx.store.charges, 3)
}

func TestGenerateMonthlyChargesBuildsChargeFields(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	require.NotEmpty(t, fx.store.charges)

	charge := fx.store.charges[0]
	assert.Equal(t, "ath-1", charge.AthleteID)
	assert.Equal(t, int64(12000), charge.AmountCents)
	assert.Equal(t, "USD", charge.Currency)
	assert.Equal(t, "Kids - March 2025", charge.Description)
	assert.Equal(t, "2025-03-31", models.DateKey(charge.DueDate))
	assert.Equal(t, models.ChargePending, charge.Status)
	assert.Equal(t, models.ChargeSourceMonthly, charge.Source)
	require.NotNil(t, charge.GroupID)
	assert.Equal(t, "g-kids", *charge.GroupID)
}

func TestGenerateMonthlyChargesFallsBackToConfiguredCurrency(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{DefaultCurrency: "EUR"})
	req := marchRequest()
	req.AcademyID = "academy-2"

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, fx.store.charges)
	assert.Equal(t, "EUR", fx.store.charges[0].Currency)
}

func TestGenerateMonthlyChargesReportsSkipReasons(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	fx.store.targets = append(fx.store.targets,
		models.BillingTarget{AthleteID: "ath-4", AthleteName: "Davi"},
		models.BillingTarget{AthleteID: "ath-5", AthleteName: "Eva", GroupID: strPtr("g-free")},
		models.BillingTarget{AthleteID: "ath-6", AthleteName: "Fabio", GroupID: strPtr("g-broken")},
	)
	fx.fees.errs = map[string]error{"g-broken": errors.New("statement timeout")}

	res, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 1, res.SkipReasons[dto.SkipReasonNoGroup])
	assert.Equal(t, 1, res.SkipReasons[dto.SkipReasonZeroFee])
	assert.Equal(t, 1, res.SkipReasons[dto.SkipReasonFeeError])
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "ath-6")
}

func TestGenerateMonthlyChargesScopedToGroup(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	req := marchRequest()
	req.GroupID = strPtr("g-adults")

	res, err := fx.service.GenerateMonthlyCharges(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, "ath-3", fx.store.charges[0].AthleteID)
}

func TestGenerateMonthlyChargesRejectsOversizedPopulation(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{MaxPopulation: 2})

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 3, fx.store.lastLimit)
	assert.Empty(t, fx.store.charges)
}

func TestGenerateMonthlyChargesWithoutSkipDuplicatesReliesOnStorageGuard(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	_, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)

	off := false
	req := marchRequest()
	req.SkipDuplicates = &off
	res, err := fx.service.GenerateMonthlyCharges(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, res.SkipReasons[dto.SkipReasonDuplicate])
	assert.Len(t, fx.store.charges, 3)
}

func TestGenerateMonthlyChargesCountsLostRaceAsDuplicate(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	fx.store.raced["ath-2"] = true

	res, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.SkipReasons[dto.SkipReasonDuplicate])
}

func TestGenerateMonthlyChargesCancelledChargeDoesNotBlock(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	fx.store.charges = []models.Charge{{AcademyID: "academy-1", AthleteID: "ath-1", Period: "2025-03", Status: models.ChargeCancelled, Source: models.ChargeSourceMonthly}}

	res, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
}

func TestGenerateMonthlyChargesValidation(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})

	for _, period := range []string{"2025-3", "2025-13", "March", ""} {
		_, err := fx.service.GenerateMonthlyCharges(context.Background(), dto.GenerateChargesRequest{AcademyID: "academy-1", Period: period})
		require.Error(t, err, period)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, period)
	}

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), dto.GenerateChargesRequest{AcademyID: "missing", Period: "2025-03"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = fx.service.GenerateMonthlyCharges(context.Background(), dto.GenerateChargesRequest{TenantID: "tenant-2", AcademyID: "academy-1", Period: "2025-03"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateMonthlyChargesRollsBackOnInsertFailure(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	db, mock := newTxMock(t)
	fx.service.tx = db
	fx.store.insertErr = errors.New("deadlock detected")
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateMonthlyChargesReportsRunInProgress(t *testing.T) {
	fx := newGeneratorFixture(t, ChargeGeneratorConfig{})
	fx.service.locks = heldLocker{}

	_, err := fx.service.GenerateMonthlyCharges(context.Background(), marchRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunInProgress.Code, appErrors.FromError(err).Code)
}
