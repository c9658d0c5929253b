package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/require"
)

type noLoader struct{}

func (noLoader) LoadTest(context.Context, string) (*model.Exam, error) { return nil, context.Canceled }

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{GinMode: gin.TestMode, JWTSecret: "secret"}
	auth := service.NewAuthService(cfg)
	log := zerolog.Nop()

	sessions := service.NewSessionService(noLoader{}, nil, nil, service.SessionSettings{}, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sessions.Shutdown(ctx, "test over")
	})
	results := service.NewResultService(rdb, nil, nil, time.Hour, log)
	monitor := service.NewMonitorService(rdb, log)

	handlers := &Handlers{
		Health:  handler.NewHealthHandler(rdb, nil, sessions),
		Session: handler.NewSessionHandler(sessions, log),
		Result:  handler.NewResultHandler(results, log),
		Monitor: handler.NewMonitorHandler(sessions, monitor, log),
		WS:      handler.NewWSHandler(sessions, monitor, log, nil),
	}
	return SetupRouter(auth, handlers, middleware.NewRateLimiter(100), cfg), auth
}

func TestRouterPublicEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestRouterGroupsRequireMatchingToken(t *testing.T) {
	r, auth := newTestRouter(t)
	student, err := auth.GenerateToken(service.TokenTypeStudent, model.Student{Email: "ada@example.com"}, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/api/v1/student/tests/t1/result", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/student/tests/t1/result", student, http.StatusNotFound},
		{http.MethodGet, "/api/v1/supervisor/tests/t1/monitor", student, http.StatusForbidden},
		{http.MethodPost, "/api/v1/supervisor/sessions/x/terminate", "", http.StatusUnauthorized},
		{http.MethodGet, "/ws/v1/student/tests/t1/session", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, tc.status, w.Code, tc.path)
	}
}
