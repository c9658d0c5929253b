package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

const (
	outboxSize = 256
	// DisconnectReason ends a session whose socket dropped.
	DisconnectReason = "Connection lost"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs proctored sessions over WebSocket.
type WSHandler struct {
	sessions *service.SessionService
	monitor  *service.MonitorService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. monitor may be nil.
func NewWSHandler(sessions *service.SessionService, monitor *service.MonitorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		monitor:  monitor,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/tests/:test_id/session
// Opens a proctored session. The browser shim forwards document events and
// receives snapshots, toasts and lockdown commands.
func (h *WSHandler) SessionStream(c *gin.Context) {
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

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	student := claims.Student()
	wsLog := h.log.With().
		Str("student", student.Email).
		Str("test_id", testID).
		Logger()

	out := ws.NewOutbox(conn, outboxSize, wsLog)
	writerDone := make(chan struct{})
	go func() {
		out.Run()
		close(writerDone)
	}()
	defer func() {
		out.Close()
		<-writerDone
	}()

	notifier := newStreamNotifier(out, h.monitor, testID, student)
	doc := ws.NewRemoteDocument(out)

	sess, err := h.sessions.Open(c.Request.Context(), student, testID, notifier, doc)
	if err != nil {
		if sess != nil {
			notifier.bind(sess.ID())
		}
		h.openFailed(out, notifier, wsLog, err)
		return
	}
	notifier.bind(sess.ID())
	notifier.emit(service.MonitorEvent{Type: service.MonitorJoined})
	wsLog = wsLog.With().Str("session_id", sess.ID()).Logger()
	wsLog.Info().Msg("Student connected")

	go func() {
		<-sess.Done()
		notifier.emit(service.MonitorEvent{
			Type:           service.MonitorEnded,
			ViolationCount: sess.ViolationCount(),
			Message:        sess.Reason(),
		})
		out.Close()
		<-writerDone
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	stream := &sessionStream{sess: sess, doc: doc, out: out, log: wsLog, ctx: ctx}

	for {
		action, raw, err := ws.ReadFrame(conn)
		if err != nil {
			if raw != nil {
				stream.fail(response.ErrInvalidPayload, "invalid frame", nil)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		stream.dispatch(action, raw)
	}

	if sess.Terminate(DisconnectReason) {
		wsLog.Warn().Msg("Session ended by disconnect")
	}
	cancel()
	stream.wg.Wait()
}

func (h *WSHandler) openFailed(out *ws.Outbox, notifier *streamNotifier, log zerolog.Logger, err error) {
	status, code := sessionError(err)
	if errors.Is(err, proctor.ErrLoadFailure) {
		log.Warn().Err(err).Msg("Test failed to load")
		notifier.emit(service.MonitorEvent{Type: service.MonitorLoadFailed, Message: err.Error()})
		out.Send(ws.LoadFailedEvent{Event: ws.EventLoadFailed, Message: response.GetMessage(code)})
		return
	}

	log.Info().Err(err).Int("status", status).Msg("Session not opened")
	out.Send(ws.ErrorResponse{
		Event:    ws.EventError,
		Code:     string(code),
		Error:    response.GetMessage(code),
		Category: proctor.Classify(err),
	})
}

// sessionStream routes the frames of one connection to its session.
type sessionStream struct {
	sess *proctor.Session
	doc  *ws.RemoteDocument
	out  *ws.Outbox
	log  zerolog.Logger

	// ctx bounds collaborator calls; it is cancelled once the socket closes.
	ctx context.Context
	wg  sync.WaitGroup
}

func (s *sessionStream) dispatch(action ws.Action, raw []byte) {
	switch action {
	case ws.ActionEnv:
		var req ws.EnvRequest
		if !s.decode(raw, &req) {
			return
		}
		ev := s.doc.Dispatch(&req.Event)
		s.out.Send(ws.AckEvent{
			Event:              ws.EventAck,
			Seq:                req.Seq,
			DefaultPrevented:   ev.DefaultPrevented(),
			PropagationStopped: ev.PropagationStopped(),
		})

	case ws.ActionAnswer:
		var req ws.AnswerRequest
		if !s.decode(raw, &req) {
			return
		}
		s.reply(s.sess.AnswerQuestion(req.QuestionID, model.Answer{
			Option:   req.Option,
			Code:     req.Code,
			Language: req.Language,
		}))

	case ws.ActionMarkReview:
		var req ws.QuestionRequest
		if s.decode(raw, &req) {
			s.reply(s.sess.MarkForReview(req.QuestionID))
		}

	case ws.ActionClear:
		var req ws.QuestionRequest
		if s.decode(raw, &req) {
			s.reply(s.sess.ClearAnswer(req.QuestionID))
		}

	case ws.ActionGoto:
		var req ws.GotoRequest
		if s.decode(raw, &req) {
			s.reply(s.sess.Goto(req.Index))
		}

	case ws.ActionNext:
		s.reply(s.sess.Next())
	case ws.ActionPrev:
		s.reply(s.sess.Prev())
	case ws.ActionSubmit:
		s.reply(s.sess.SubmitManually())
	case ws.ActionDismiss:
		s.reply(s.sess.DismissOverride())
	case ws.ActionReturnFullscreen:
		s.reply(s.sess.ReturnToFullscreen())

	case ws.ActionPasscode:
		var req ws.PasscodeRequest
		if !s.decode(raw, &req) {
			return
		}
		s.async(func(ctx context.Context) {
			s.reply(s.sess.SubmitPasscode(ctx, req.Code))
		})

	case ws.ActionDryRun:
		var req ws.CodeRequest
		if !s.decode(raw, &req) {
			return
		}
		s.async(func(ctx context.Context) {
			res, err := s.sess.RunDryRun(ctx, req.QuestionID, req.Code, req.Language)
			if err != nil {
				s.reply(err)
				return
			}
			s.out.Send(ws.DryRunResultEvent{Event: ws.EventDryRunResult, QuestionID: req.QuestionID, Result: res})
		})

	case ws.ActionSubmitCode:
		var req ws.CodeRequest
		if !s.decode(raw, &req) {
			return
		}
		s.async(func(ctx context.Context) {
			res, err := s.sess.SubmitCode(ctx, req.QuestionID, req.Code, req.Language)
			if err != nil {
				s.reply(err)
				return
			}
			s.out.Send(ws.CodeResultEvent{Event: ws.EventCodeResult, QuestionID: req.QuestionID, Result: res})
		})

	case ws.ActionPing:
		s.out.Send(ws.PongResponse{Event: ws.EventPong})

	default:
		s.log.Warn().Str("action", string(action)).Msg("Unknown action")
		s.fail(response.ErrInvalidPayload, "unknown action: "+string(action), nil)
	}
}

// async runs a collaborator call off the read loop so env events keep flowing.
func (s *sessionStream) async(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *sessionStream) decode(raw []byte, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		s.fail(response.ErrInvalidPayload, err.Error(), nil)
		return false
	}
	if fields := validator.Struct(dst); fields != nil {
		s.fail(response.ErrValidation, response.GetMessage(response.ErrValidation), fields)
		return false
	}
	return true
}

func (s *sessionStream) reply(err error) {
	if err == nil {
		return
	}
	_, code := sessionError(err)
	s.out.Send(ws.ErrorResponse{
		Event:    ws.EventError,
		Code:     string(code),
		Error:    err.Error(),
		Category: proctor.Classify(err),
	})
}

func (s *sessionStream) fail(code response.ErrCode, msg string, fields map[string]string) {
	s.out.Send(ws.ErrorResponse{
		Event:    ws.EventError,
		Code:     string(code),
		Error:    msg,
		Category: proctor.CategoryValidation,
		Fields:   fields,
	})
}
