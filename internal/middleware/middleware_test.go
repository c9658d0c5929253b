package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, body []byte) response.ErrCode {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotNil(t, res.Error)
	return res.Error.Code
}

func TestRequireStudentJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "secret"})
	student := model.Student{Email: "learner@example.com", Name: "Learner"}

	r := gin.New()
	r.GET("/me", RequireStudentJWT(auth), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Email)
	})

	valid, err := auth.GenerateToken(service.TokenTypeStudent, student, time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken(service.TokenTypeStudent, student, -time.Hour)
	require.NoError(t, err)
	supervisor, err := auth.GenerateToken(service.TokenTypeSupervisor, student, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"missing", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage", "Bearer nope", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, response.ErrTokenExpired},
		{"wrong type", "Bearer " + supervisor, http.StatusForbidden, response.ErrStudentAccessOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
			require.Equal(t, tc.code, errorCode(t, w.Body.Bytes()))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+valid)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, student.Email, w.Body.String())
}

func TestRequireSupervisorJWTAcceptsQueryToken(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "secret"})
	tok, err := auth.GenerateToken(service.TokenTypeSupervisor, model.Student{Email: "sup@example.com"}, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/monitor", RequireSupervisorJWT(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor?token="+tok, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireStudentWSAuth(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "secret"})
	tok, err := auth.GenerateToken(service.TokenTypeStudent, model.Student{Email: "learner@example.com"}, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/ws", RequireStudentWSAuth(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, response.ErrTokenRequired, errorCode(t, w.Body.Bytes()))

	// Headers are not consulted for upgrades.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	require.True(t, rl.allow("1.1.1.1"))
	require.True(t, rl.allow("1.1.1.1"))
	require.False(t, rl.allow("1.1.1.1"))
	require.True(t, rl.allow("2.2.2.2"))

	now = now.Add(30 * time.Second)
	require.True(t, rl.allow("1.1.1.1"))

	now = now.Add(visitorTTL + time.Second)
	rl.cleanup()
	require.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(1).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, response.ErrRateLimitExceeded, errorCode(t, w.Body.Bytes()))
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	large := strings.Repeat("proctor ", 512)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	require.Equal(t, large, string(plain))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Accept", "text/event-stream")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Equal(t, large, w.Body.String())
}
