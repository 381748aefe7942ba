package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Limit int    `query:"limit" default:"10" validate:"gte=1,lte=100"`
	Kind  string `query:"kind" validate:"omitempty,oneof=a b"`
}

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/?kind=a")
	var req pageRequest
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, "a", req.Kind)

	c, _ = newCtx(http.MethodGet, "/?limit=500&kind=z")
	req = pageRequest{}
	errs := ReadAndValidateRequest(c, &req)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "100", errs[0].Params["max"])
	assert.Equal(t, "ERR_ONEOF", errs[1].Code)
	assert.Equal(t, "kind", errs[1].Field)

	c, _ = newCtx(http.MethodGet, "/?limit=lots")
	errs = ReadAndValidateRequest(c, &pageRequest{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var env APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, rec.Code, env.Status)
	return env
}

func TestAppErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ConflictError("ERR_DUPLICATE_EVENT", "seen"), http.StatusConflict, "ERR_DUPLICATE_EVENT"},
		{TooManyRequestsError("slow down"), http.StatusTooManyRequests, "ERR_RATE_LIMITED"},
		{UnavailableError("engine down"), http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{BadRequestErrorf("bad %s", "amount").WithParam("field", "amount"), http.StatusBadRequest, "ERR_BAD_REQUEST"},
	}
	for _, tt := range tests {
		c, rec := newCtx(http.MethodGet, "/")
		require.NoError(t, AppErrorResponse(c, tt.err))
		assert.Equal(t, tt.status, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Contains(t, string(mustJSON(t, env.Data)), tt.code)
	}

	c, rec := newCtx(http.MethodGet, "/")
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := InternalError("failed").WithError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed: root", err.Error())
}

func TestParseTimeRange(t *testing.T) {
	r, ok := ParseTimeRange("", "")
	require.True(t, ok)
	assert.Nil(t, r.From)
	assert.True(t, r.Contains(time.Now()))

	r, ok = ParseTimeRange("2025-03-01T00:00:00Z", "2025-03-01T12:00:00Z")
	require.True(t, ok)
	assert.True(t, r.Contains(time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)))

	_, ok = ParseTimeRange("2025-03-02T00:00:00Z", "2025-03-01T00:00:00Z")
	assert.False(t, ok, "to before from")
	_, ok = ParseTimeRange("yesterday", "")
	assert.False(t, ok)
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, "fine") })
	e.GET("/panic", func(c echo.Context) error { panic("boom") })
}

func TestServer_MiddlewareAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer([]Handler{routes{}, nil}, WithMetrics("/metrics", reg, reg))
	e := s.Echo()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "http://dash.local")
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dash.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "riskpulse_http_"), "request metrics are exposed")
}

func TestServer_MetricsPathDisabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(nil, WithMetrics("", reg, reg), WithCORS(false))
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
