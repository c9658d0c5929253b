package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const keepAliveInterval = 30 * time.Second

// liveSession is one row of the monitor snapshot.
type liveSession struct {
	SessionID        string             `json:"session_id"`
	StudentEmail     string             `json:"student_email"`
	StudentName      string             `json:"student_name"`
	State            model.SessionState `json:"state"`
	ViolationCount   int                `json:"violation_count"`
	RemainingSeconds int                `json:"remaining_seconds"`
}

type monitorSnapshot struct {
	Type     string        `json:"type"`
	TestID   string        `json:"test_id"`
	Sessions []liveSession `json:"sessions"`
}

type MonitorHandler struct {
	sessions *service.SessionService
	monitor  *service.MonitorService
	log      zerolog.Logger

	keepAlive time.Duration
}

func NewMonitorHandler(sessions *service.SessionService, monitor *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		sessions:  sessions,
		monitor:   monitor,
		log:       log.With().Str("component", "monitor_handler").Logger(),
		keepAlive: keepAliveInterval,
	}
}

// MonitorTestSSE godoc
// GET /api/v1/supervisor/tests/:test_id/monitor
// Streams a snapshot of the live sessions of a test, then every session event.
func (h *MonitorHandler) MonitorTestSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID := strings.TrimSpace(c.Param("test_id"))
	if testID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()
	events, err := h.monitor.Subscribe(reqCtx, testID)
	if err != nil {
		h.log.Error().Err(err).Str("test_id", testID).Msg("Monitor subscribe failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.writeEvent(c, h.snapshot(testID))

	keepAliveTicker := time.NewTicker(h.keepAlive)
	defer keepAliveTicker.Stop()

	h.log.Info().Str("test_id", testID).Str("supervisor", claims.Email).Msg("Supervisor attached to live monitor")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("test_id", testID).Msg("Supervisor detached from live monitor")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			h.writeEvent(c, ev)

		case <-keepAliveTicker.C:
			h.writeRaw(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) snapshot(testID string) monitorSnapshot {
	live := h.sessions.Live(testID)
	rows := make([]liveSession, 0, len(live))
	for _, sess := range live {
		v := sess.View()
		rows = append(rows, liveSession{
			SessionID:        sess.ID(),
			StudentEmail:     sess.Student().Email,
			StudentName:      sess.Student().Name,
			State:            v.State,
			ViolationCount:   v.ViolationCount,
			RemainingSeconds: v.RemainingSeconds,
		})
	}
	return monitorSnapshot{Type: "snapshot", TestID: testID, Sessions: rows}
}

func (h *MonitorHandler) writeEvent(c *gin.Context, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.log.Warn().Err(err).Msg("Monitor event encode failed")
		return
	}
	h.writeRaw(c, raw)
}

func (h *MonitorHandler) writeRaw(c *gin.Context, raw []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(raw)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
