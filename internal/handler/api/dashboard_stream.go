package api

import (
	"context"
	"net/http"
	"time"

	"RiskPulse/internal/usecase"
	xlogger "RiskPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// DashboardStream pushes the full dashboard view over a websocket, once on
// connect and then every interval.
type DashboardStream struct {
	logger   *xlogger.Logger
	dash     *usecase.DashboardService
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewDashboardStream(logger *xlogger.Logger, dash *usecase.DashboardService, interval time.Duration) *DashboardStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &DashboardStream{
		logger:   logger,
		dash:     dash,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// any origin may subscribe
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *DashboardStream) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/dashboard", s.Serve)
}

func (s *DashboardStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// read loop: only control frames are expected; any error ends the stream
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := time.NewTicker(s.interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.send(ctx, conn); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-push.C:
			if err := s.send(ctx, conn); err != nil {
				return nil
			}
		}
	}
}

// send writes one view frame. An unavailable engine sends an error frame
// and keeps the connection open.
func (s *DashboardStream) send(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	raw, err := s.dash.ViewJSON(ctx)
	if err != nil {
		return conn.WriteJSON(map[string]string{"error": err.Error()})
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		s.logger.Debug("ws write failed", xlogger.Error(err))
		return err
	}
	return nil
}
