package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type stubLoader struct {
	err error
}

func (l *stubLoader) LoadTest(_ context.Context, testID string) (*model.Exam, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &model.Exam{
		TestID:               testID,
		Name:                 "Quiz",
		TotalDurationSeconds: 600,
		Questions: []model.Question{
			&model.MCQQuestion{ID: "q1", CorrectOption: "A", Marks: 1},
			&model.MCQQuestion{ID: "q2", CorrectOption: "B", Marks: 1},
		},
	}, nil
}

type stubCollaborator struct{}

func (stubCollaborator) DryRun(context.Context, model.DryRunRequest) (*model.DryRunResponse, error) {
	return &model.DryRunResponse{Success: true}, nil
}

func (stubCollaborator) SubmitCode(context.Context, model.CodeSubmitRequest) (*model.CodeSubmitResponse, error) {
	return &model.CodeSubmitResponse{Success: true}, nil
}

func (stubCollaborator) ValidatePasscode(_ context.Context, req model.PasscodeRequest) (*model.PasscodeResponse, error) {
	return &model.PasscodeResponse{Valid: req.Code == "1234"}, nil
}

// chanSink hands every persisted result to the test.
type chanSink chan *model.SubmissionResult

func (s chanSink) Persist(_ context.Context, res *model.SubmissionResult, _ model.Student) error {
	s <- res
	return nil
}

// quietEnv never dispatches events.
type quietEnv struct{}

func (quietEnv) RequestFullscreen() error            { return nil }
func (quietEnv) ExitFullscreen() error               { return nil }
func (quietEnv) IsFullscreen() bool                  { return false }
func (quietEnv) AddListener(proctor.Listener) func() { return func() {} }

type nullNotifier struct{}

func (nullNotifier) Render(proctor.View) {}
func (nullNotifier) Toast(proctor.Toast) {}
func (nullNotifier) Navigate(string)     {}

func newSessions(t *testing.T, loader service.TestLoader, sink proctor.ResultSink) *service.SessionService {
	t.Helper()
	svc := service.NewSessionService(loader, stubCollaborator{}, sink, service.SessionSettings{}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx, "test over")
	})
	return svc
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return server, rdb
}

// withClaims authenticates the request as the email in the X-Test-Email header or ?email=.
func withClaims(tokenType service.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader("X-Test-Email")
		if email == "" {
			email = c.Query("email")
		}
		c.Set(middleware.ContextKeyClaims, &service.Claims{
			TokenType: tokenType,
			Email:     email,
			Name:      "Learner",
		})
		c.Next()
	}
}

func decodeResponse(t *testing.T, body []byte) response.Response {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

type frame map[string]any

// readUntil returns the first frame matching match, failing after two seconds.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f["event"] == name }
}

// waitResult waits for one persisted result.
func waitResult(t *testing.T, sink chanSink) *model.SubmissionResult {
	t.Helper()
	select {
	case res := <-sink:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("no result persisted")
		return nil
	}
}
