package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/middleware"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/internal/service"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

func newTestContext(method, path string, body []byte, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if role != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", TenantID: "tenant-1", Role: role})
	}
	return c, w
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type materializerMock struct {
	captured        dto.MaterializeSessionsRequest
	capturedAcademy dto.MaterializeAcademyRequest
	err             error
}

func (m *materializerMock) Materialize(ctx context.Context, req dto.MaterializeSessionsRequest) (*dto.MaterializeResult, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.MaterializeResult{ClassID: req.ClassID, Generated: 4, Errors: []string{}}, nil
}

func (m *materializerMock) MaterializeAcademy(ctx context.Context, req dto.MaterializeAcademyRequest) (*dto.MaterializeAcademyResult, error) {
	m.capturedAcademy = req
	return &dto.MaterializeAcademyResult{AcademyID: req.AcademyID, Errors: []string{}}, nil
}

type sessionMock struct {
	captured dto.CreateSessionRequest
	err      error
}

func (m *sessionMock) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.ClassSession, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ClassSession{ID: "session-1", ClassID: req.ClassID}, nil
}

type exceptionMock struct {
	captured dto.CreateClassExceptionRequest
}

func (m *exceptionMock) Create(ctx context.Context, req dto.CreateClassExceptionRequest) (*models.ClassException, error) {
	m.captured = req
	return &models.ClassException{ID: "exception-1", ClassID: req.ClassID}, nil
}

func TestMaterializeClassWithoutBody(t *testing.T) {
	mock := &materializerMock{}
	h := &SessionHandler{materializer: mock}
	c, w := newTestContext(http.MethodPost, "/classes/class-1/sessions/materialize", nil, models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.MaterializeClass(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mock.captured.ClassID)
	assert.Equal(t, "tenant-1", mock.captured.TenantID)
	assert.Zero(t, mock.captured.WeeksAhead)
}

func TestMaterializeClassBindsWindow(t *testing.T) {
	mock := &materializerMock{}
	h := &SessionHandler{materializer: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"from":"2024-01-01","to":"2024-01-14","weeksAhead":2}`), models.RoleSuperAdmin)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.MaterializeClass(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-01-01", mock.captured.From)
	assert.Equal(t, 2, mock.captured.WeeksAhead)
	assert.Empty(t, mock.captured.TenantID)
}

func TestMaterializeClassMapsConfigurationError(t *testing.T) {
	mock := &materializerMock{err: appErrors.Clone(appErrors.ErrConfiguration, "class class-1 has no weekdays configured")}
	h := &SessionHandler{materializer: mock}
	c, w := newTestContext(http.MethodPost, "/", nil, models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.MaterializeClass(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "CONFIGURATION_ERROR", decode(t, w).Error.Code)
}

func TestMaterializeClassRejectsMalformedBody(t *testing.T) {
	h := &SessionHandler{materializer: &materializerMock{}}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"weeksAhead":`), models.RoleAdmin)

	h.MaterializeClass(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaterializeAcademy(t *testing.T) {
	mock := &materializerMock{}
	h := &SessionHandler{materializer: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"weeksAhead":3}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "academy-1"}}

	h.MaterializeAcademy(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "academy-1", mock.capturedAcademy.AcademyID)
	assert.Equal(t, 3, mock.capturedAcademy.WeeksAhead)
}

func TestCreateSessionReturnsScheduleConflict(t *testing.T) {
	conflict := models.CommitmentConflict{ResourceKind: models.ResourceCoach, ResourceID: "coach-2", Kind: models.CommitmentBase, ClassID: "class-9", ClassName: "Adults", Date: "2024-01-01", StartTime: "18:00", EndTime: "19:00"}
	cause := models.NewScheduleConflictError(conflict)
	appErr := appErrors.Wrap(cause, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, cause.Message)
	h := &SessionHandler{sessions: &sessionMock{err: appErr}}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"date":"2024-01-01","coachId":"coach-2"}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.CreateSession(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "SCHEDULE_CONFLICT", env.Error.Code)
	assert.Contains(t, env.Error.Message, "Adults")
}

func TestCreateSessionCreated(t *testing.T) {
	mock := &sessionMock{}
	h := &SessionHandler{sessions: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"date":"2024-01-01","startTime":"09:00","endTime":"10:00"}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.CreateSession(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "class-1", mock.captured.ClassID)
	assert.Equal(t, "09:00", mock.captured.StartTime)
}

func TestCreateException(t *testing.T) {
	mock := &exceptionMock{}
	h := &SessionHandler{exceptions: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"date":"2024-12-25","reason":"Christmas","kind":"holiday"}`), models.RoleCoach)
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	h.CreateException(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "class-1", mock.captured.ClassID)
	assert.Equal(t, "holiday", mock.captured.Kind)
}

type conflictMock struct {
	captured dto.ConflictCheckRequest
	result   *dto.ConflictCheckResult
}

func (m *conflictMock) CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResult, error) {
	m.captured = req
	return m.result, nil
}

type extraMock struct {
	captured dto.AddExtraClassRequest
}

func (m *extraMock) AddExtraClass(ctx context.Context, req dto.AddExtraClassRequest) (*models.AthleteExtraClass, error) {
	m.captured = req
	return &models.AthleteExtraClass{ID: "extra-1"}, nil
}

func TestConflictCheck(t *testing.T) {
	mock := &conflictMock{result: &dto.ConflictCheckResult{HasConflict: true, Conflict: &dto.CommitmentConflict{ClassID: "class-1"}}}
	h := &ConflictHandler{conflicts: mock}
	body := []byte(`{"resourceKind":"athlete","resourceId":"ath-1","start":"2024-01-01T18:30:00Z","end":"2024-01-01T19:30:00Z"}`)
	c, w := newTestContext(http.MethodPost, "/conflicts/check", body, models.RoleCoach)

	h.Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "athlete", mock.captured.ResourceKind)
	assert.Equal(t, 18, mock.captured.Start.Hour())
	assert.Equal(t, "tenant-1", mock.captured.TenantID)

	var result dto.ConflictCheckResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.True(t, result.HasConflict)
	assert.Equal(t, "class-1", result.Conflict.ClassID)
}

func TestConflictCheckLeavesSuperAdminUnscoped(t *testing.T) {
	mock := &conflictMock{result: &dto.ConflictCheckResult{}}
	h := &ConflictHandler{conflicts: mock}
	body := []byte(`{"resourceKind":"coach","resourceId":"coach-1","start":"2024-01-01T18:30:00Z","end":"2024-01-01T19:30:00Z"}`)
	c, w := newTestContext(http.MethodPost, "/conflicts/check", body, models.RoleSuperAdmin)

	h.Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mock.captured.TenantID)
}

func TestAddExtraClassUsesPathAthlete(t *testing.T) {
	mock := &extraMock{}
	h := &ConflictHandler{extras: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"athleteId":"spoofed","classId":"class-1","date":"2024-01-03"}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "ath-1"}}

	h.AddExtraClass(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ath-1", mock.captured.AthleteID)
	assert.Equal(t, "tenant-1", mock.captured.TenantID)
}

type chargeMock struct {
	generated dto.GenerateChargesRequest
	exported  dto.ChargeExportRequest
	statusID  string
	status    dto.ChargeStatusRequest
	statusErr error
}

func (m *chargeMock) GenerateMonthlyCharges(ctx context.Context, req dto.GenerateChargesRequest) (*dto.ChargeGenerationResult, error) {
	m.generated = req
	return &dto.ChargeGenerationResult{AcademyID: req.AcademyID, Period: req.Period, Created: 3, SkipReasons: map[string]int{}, Errors: []string{}}, nil
}

func (m *chargeMock) Export(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.ExportFile, error) {
	m.exported = req
	return &dto.ExportFile{Filename: "charges_academy-1_2025-03.csv", ContentType: "text/csv", Body: []byte("athlete\n")}, nil
}

func (m *chargeMock) ApplyPaymentStatus(ctx context.Context, tenantID, chargeID string, req dto.ChargeStatusRequest) (*models.Charge, error) {
	m.statusID = chargeID
	m.status = req
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &models.Charge{ID: chargeID, Status: models.ChargeStatus(req.Status)}, nil
}

func TestGenerateCharges(t *testing.T) {
	mock := &chargeMock{}
	h := &ChargeHandler{generator: mock}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"period":"2025-03","skipDuplicates":false}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "academy-1"}}

	h.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "academy-1", mock.generated.AcademyID)
	assert.Equal(t, "2025-03", mock.generated.Period)
	assert.False(t, mock.generated.ShouldSkipDuplicates())
}

func TestExportChargesStreamsAttachment(t *testing.T) {
	mock := &chargeMock{}
	h := &ChargeHandler{exporter: mock}
	c, w := newTestContext(http.MethodGet, "/academies/academy-1/charges/export?period=2025-03&format=csv", nil, models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "academy-1"}}

	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03", mock.exported.Period)
	assert.Equal(t, "academy-1", mock.exported.AcademyID)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "charges_academy-1_2025-03.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestUpdateChargeStatusInvalidTransition(t *testing.T) {
	mock := &chargeMock{statusErr: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move charge from paid to cancelled")}
	h := &ChargeHandler{status: mock}
	c, w := newTestContext(http.MethodPatch, "/", []byte(`{"status":"cancelled"}`), models.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: "charge-1"}}

	h.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "charge-1", mock.statusID)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, w).Error.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordMaterialization(2, 1)
	h := NewMetricsHandler(metrics, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
	})

	c, w := newTestContext(http.MethodGet, "/metrics/summary", nil, "")
	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	var snap dto.MetricsSnapshot
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	assert.Equal(t, uint64(2), snap.SessionsGenerated)

	c, w = newTestContext(http.MethodGet, "/metrics", nil, "")
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scheduling_sessions_total")

	c, w = newTestContext(http.MethodGet, "/ready", nil, "")
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"redis": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil, "")

	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
