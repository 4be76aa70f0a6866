package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/internal/service"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type fakeTokens struct{}

func (fakeTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "valid" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: 1, Email: "asha@example.com"}, nil
}

type fakeAuthSrv struct {
	registered models.RegisterRequest
	err        error
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.User, error) {
	f.registered = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: 1, Name: req.Name, Email: req.Email}, nil
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret1" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	return &models.LoginResponse{AccessToken: "valid", ExpiresIn: 3600}, nil
}

func (f *fakeAuthSrv) Me(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Name: "Asha"}, nil
}

type fakeRouteSrv struct {
	created service.CreateRouteRequest
	listReq service.ListRequest
}

func (f *fakeRouteSrv) Create(_ context.Context, req service.CreateRouteRequest) (*models.Route, error) {
	f.created = req
	return &models.Route{ID: 1, SlotNo: req.SlotNo, NoOfPeople: req.NoOfPeople}, nil
}

func (f *fakeRouteSrv) Get(_ context.Context, id int64) (*models.Route, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrRouteNotFound, "")
	}
	return &models.Route{ID: 1, SlotNo: "A1"}, nil
}

func (f *fakeRouteSrv) List(_ context.Context, req service.ListRequest) ([]models.Route, *models.Pagination, error) {
	f.listReq = req
	return []models.Route{{ID: 2}, {ID: 1}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2}, nil
}

type fakeLinkSrv struct{}

func (fakeLinkSrv) Create(_ context.Context, req service.CreateLinkRequest) (*models.Link, error) {
	return &models.Link{ID: 1, Name: req.Name}, nil
}

func (fakeLinkSrv) Get(_ context.Context, id int64) (*models.Link, error) {
	return nil, appErrors.Clone(appErrors.ErrLinkNotFound, "")
}

func (fakeLinkSrv) List(_ context.Context, _ service.ListRequest) ([]models.Link, *models.Pagination, error) {
	return []models.Link{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

type fakeScheduler struct {
	assignReq  service.AssignRequest
	attachDate string
	attachID   int64
	summaryLim int
	tripsHit   bool
}

func (f *fakeScheduler) Assign(_ context.Context, req service.AssignRequest) (*models.AssignmentResult, error) {
	f.assignReq = req
	if req.RouteID == 404 {
		return nil, appErrors.Clone(appErrors.ErrRouteNotFound, "")
	}
	return &models.AssignmentResult{AssignmentID: 9, Created: req.LinkID == nil}, nil
}

func (f *fakeScheduler) CreateRouteForDate(_ context.Context, date string, req service.CreateRouteRequest) (*models.ScheduledRoute, error) {
	return &models.ScheduledRoute{Route: models.Route{ID: 3, SlotNo: req.SlotNo}, AssignmentID: 4}, nil
}

func (f *fakeScheduler) AttachLinkToRoute(_ context.Context, date string, routeID int64, req service.CreateLinkRequest) (*models.AttachedLink, error) {
	f.attachDate, f.attachID = date, routeID
	return &models.AttachedLink{Link: models.Link{ID: 5, Name: req.Name}, AssignmentID: 6}, nil
}

func (f *fakeScheduler) TripsOn(_ context.Context, date string) ([]models.Trip, bool, error) {
	if date == "bad" {
		return nil, false, appErrors.Validation(nil, "date must be YYYY-MM-DD", map[string]string{"date": "must be YYYY-MM-DD"})
	}
	d, _ := models.ParseDate(date)
	return []models.Trip{{AssignmentID: 1, TravelDate: d, Route: models.Route{ID: 1}}}, f.tripsHit, nil
}

func (f *fakeScheduler) RoutesOn(_ context.Context, date string) ([]models.Route, error) {
	return []models.Route{{ID: 1}}, nil
}

func (f *fakeScheduler) RecentSummary(_ context.Context, limit int) (*models.RecentSummary, error) {
	f.summaryLim = limit
	return &models.RecentSummary{Routes: []models.Route{}, Links: []models.Link{}}, nil
}

func (f *fakeScheduler) MonthOverview(_ context.Context, year, month int) (*models.MonthOverview, bool, error) {
	return &models.MonthOverview{Year: year, Month: month}, false, nil
}

func (f *fakeScheduler) Holidays(year int) ([]models.Holiday, error) {
	return []models.Holiday{{Date: models.NewDate(year, 1, 26), Name: "Republic Day"}}, nil
}

type fakeExporter struct{}

func (fakeExporter) ExportTrips(_ context.Context, date, format string) (*service.ExportResult, error) {
	if format != "csv" {
		return nil, appErrors.Validation(nil, "format must be csv or pdf", nil)
	}
	return &service.ExportResult{Name: "trips_" + date + ".csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Assignment\n1\n")}, nil
}

type testServer struct {
	router    *gin.Engine
	auth      *fakeAuthSrv
	routes    *fakeRouteSrv
	scheduler *fakeScheduler
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		router:    gin.New(),
		auth:      &fakeAuthSrv{},
		routes:    &fakeRouteSrv{},
		scheduler: &fakeScheduler{},
	}
	Register(s.router.Group("/api/v1"), Handlers{
		Auth:     NewAuthHandler(s.auth),
		Routes:   NewRouteHandler(s.routes),
		Links:    NewLinkHandler(fakeLinkSrv{}),
		Calendar: NewCalendarHandler(s.scheduler, fakeExporter{}),
	}, fakeTokens{})
	s.router.NoRoute(NotFound)
	return s
}

func (s *testServer) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer valid")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/auth/register", `{"name":"Asha","email":"asha@example.com","password":"secret1","confirm_password":"secret1"}`, false)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Asha", s.auth.registered.Name)

	w = s.do(http.MethodPost, "/auth/login", `{"email":"asha@example.com","password":"nope"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, w).Error.Code)

	w = s.do(http.MethodGet, "/auth/me", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/auth/me", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRegisterRejectsMalformedBody(t *testing.T) {
	s := newTestServer()
	w := s.do(http.MethodPost, "/auth/register", `{"name":`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestRouteEndpoints(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/routes", `{"slot_no":"A1","end_point":"Library","major_stops":"Gate 2","time":"09:30","transport_type":"Bus","no_of_people":4}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 4, s.routes.created.NoOfPeople)

	w = s.do(http.MethodPost, "/routes", `{"slot_no":"A1","no_of_people":"four"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "must be a whole number", env.Error.Details["no_of_people"])

	w = s.do(http.MethodPost, "/routes", `{"slot_no":"A1","no_of_people":2.5}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/routes?order=oldest&page=2&page_size=5", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ListRequest{Order: "oldest", Page: 2, PageSize: 5}, s.routes.listReq)
	assert.Equal(t, 2, decode(t, w).Pagination.TotalCount)

	w = s.do(http.MethodGet, "/routes/7", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decode(t, w).Error.Code)

	w = s.do(http.MethodGet, "/routes/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkEndpoints(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/links", `{"name":"Asha","drop_point":"Main Gate","phone":"9876543210","course_year":"2nd Year","branch":"CSE"}`, true)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/links/3", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LINK_NOT_FOUND", decode(t, w).Error.Code)
}

func TestCalendarAssign(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/calendar/assignments", `{"date":"2025-03-10","route_id":1}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, s.scheduler.assignReq.LinkID)

	w = s.do(http.MethodPost, "/calendar/assignments", `{"date":"2025-03-10","route_id":1,"link_id":1}`, true)
	require.Equal(t, http.StatusOK, w.Code, "reused assignments answer 200")
	require.NotNil(t, s.scheduler.assignReq.LinkID)
	assert.Equal(t, int64(1), *s.scheduler.assignReq.LinkID)

	w = s.do(http.MethodPost, "/calendar/assignments", `{"date":"2025-03-10","route_id":404}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarComposedEndpoints(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/calendar/2025-03-10/routes", `{"slot_no":"A1"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"assignment_id":4`)

	w = s.do(http.MethodPost, "/calendar/2025-03-10/routes/3/links", `{"name":"Asha"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2025-03-10", s.scheduler.attachDate)
	assert.Equal(t, int64(3), s.scheduler.attachID)

	w = s.do(http.MethodPost, "/calendar/2025-03-10/routes/0/links", `{"name":"Asha"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarTrips(t *testing.T) {
	s := newTestServer()
	s.scheduler.tripsHit = true

	w := s.do(http.MethodGet, "/calendar/2025-03-10/trips", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"travel_date":"2025-03-10"`)
	assert.Contains(t, string(env.Data), `"link":null`)

	w = s.do(http.MethodGet, "/calendar/bad/trips", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarReadEndpoints(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/calendar/summary?limit=3", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, s.scheduler.summaryLim)

	w = s.do(http.MethodGet, "/calendar/summary?limit=-1", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/calendar/months/2025/3", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = s.do(http.MethodGet, "/calendar/months/2025/march", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/calendar/holidays/2025", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Republic Day")

	w = s.do(http.MethodGet, "/calendar/2025-03-10/routes", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCalendarExport(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/calendar/2025-03-10/export", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "trips_2025-03-10.csv")
	assert.Equal(t, "Assignment\n1\n", w.Body.String())

	w = s.do(http.MethodGet, "/calendar/2025-03-10/export?format=xlsx", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, failingPinger{err: assert.AnError}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, failingPinger{}).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownPathUsesErrorEnvelope(t *testing.T) {
	s := newTestServer()
	w := s.do(http.MethodGet, "/nowhere", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"resource not found","status":404}}`, w.Body.String())
}
