package api

import (
	"errors"
	"net/http"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/usecase"
	xhttp "RiskPulse/pkg/http"
	xlogger "RiskPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the dashboard read model and accepts scored
// events over HTTP.
type DashboardEchoHandler struct {
	logger     *xlogger.Logger
	dash       *usecase.DashboardService
	ingest     *usecase.IngestService
	limiter    *ratelimit.Limiter
	alertLimit int
}

func NewDashboardEchoHandler(
	logger *xlogger.Logger,
	dash *usecase.DashboardService,
	ingest *usecase.IngestService,
	limiter *ratelimit.Limiter,
	alertLimit int,
) *DashboardEchoHandler {
	if alertLimit <= 0 {
		alertLimit = 10
	}
	return &DashboardEchoHandler{logger: logger, dash: dash, ingest: ingest, limiter: limiter, alertLimit: alertLimit}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/dashboard/timeseries", h.TimeSeries)
	g.GET("/dashboard/histogram", h.Histogram)
	g.GET("/dashboard/risk", h.Risk)
	g.GET("/dashboard/alerts", h.Alerts)
	g.POST("/events", h.IngestEvent)
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	raw, err := h.dash.ViewJSON(c.Request().Context())
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, raw)
}

func (h *DashboardEchoHandler) TimeSeries(c echo.Context) error {
	req := &models.TimeSeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	tr, ok := xhttp.ParseTimeRange(req.From, req.To)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from/to must be RFC3339 or unix time with from <= to"))
	}
	var from, to time.Time
	if tr.From != nil {
		from = *tr.From
	}
	if tr.To != nil {
		to = *tr.To
	}

	pts, err := h.dash.TimeSeries(c.Request().Context(), from, to)
	if err != nil {
		return h.fail(c, "timeseries", err)
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *DashboardEchoHandler) Histogram(c echo.Context) error {
	pts, err := h.dash.Histogram(c.Request().Context())
	if err != nil {
		return h.fail(c, "histogram", err)
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *DashboardEchoHandler) Risk(c echo.Context) error {
	d, err := h.dash.RiskDistribution(c.Request().Context())
	if err != nil {
		return h.fail(c, "risk", err)
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *DashboardEchoHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if c.QueryParam("limit") == "" {
		req.Limit = h.alertLimit
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	alerts, err := h.dash.Alerts(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "alerts", err)
	}
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

// IngestEvent accepts one scored transaction in the Kafka wire format.
func (h *DashboardEchoHandler) IngestEvent(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		h.logger.Warn("ingest rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("ingest rate limit exceeded"))
	}

	st := &models.ScoredTransaction{}
	if verr := xhttp.ReadAndValidateRequest(c, st); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	ev, err := st.ToEvent()
	if err != nil {
		h.ingest.Reject(usecase.SourceHTTP, err)
		return h.fail(c, "ingest", err)
	}
	alert, err := h.ingest.Ingest(c.Request().Context(), usecase.SourceHTTP, ev)
	if err != nil {
		return h.fail(c, "ingest", err)
	}
	return xhttp.CreatedResponse(c, models.IngestResponse{EventID: ev.ID, Alert: alert})
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	if _, err := h.dash.View(c.Request().Context()); err != nil {
		return h.fail(c, "health", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// fail maps usecase errors onto the response envelope.
func (h *DashboardEchoHandler) fail(c echo.Context, op string, err error) error {
	if errors.Is(err, models.ErrEngineUnavailable) {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("aggregation engine unavailable").WithError(err))
	}

	var ie *models.IngressError
	if errors.As(err, &ie) {
		if errors.Is(err, models.ErrDuplicateEvent) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError(ie.Code(), ie.Error()).WithParam("eventId", ie.EventID))
		}
		appErr := xhttp.NewAppError(ie.Code(), ingressField(ie.Err), ie.Error(), http.StatusBadRequest)
		return xhttp.AppErrorResponse(c, appErr.WithParam("eventId", ie.EventID))
	}

	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func ingressField(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingID):
		return "id"
	case errors.Is(err, models.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, models.ErrInvalidScore):
		return "riskScore"
	case errors.Is(err, models.ErrInvalidTimestamp), errors.Is(err, models.ErrFutureTimestamp), errors.Is(err, models.ErrStaleTimestamp):
		return "timestamp"
	default:
		return ""
	}
}
