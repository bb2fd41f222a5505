package httpkit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ims_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtConfig string

func (c jwtConfig) GetJWTAccessSecret() string { return string(c) }

func bufferLogger(buf *bytes.Buffer) *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}
}

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected generated uuid, got %q", got)
	}
	if seen != got {
		t.Fatalf("expected context id %q, got %q", got, seen)
	}
}

func TestRequestID_ReusesCallerValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "edge-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "edge-42" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("expected oversized id replaced, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestLogger_TagsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	secret := jwtConfig("test-secret")
	userID := uuid.New()

	r := gin.New()
	r.Use(RequestID(), RequestLogger(bufferLogger(&buf)))
	r.GET("/me", AuthRequired(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"request_id":"req-7"`) {
		t.Fatalf("expected request id in log, got %s", line)
	}
	if !strings.Contains(line, `"user_id":"`+userID.String()+`"`) {
		t.Fatalf("expected user id in log, got %s", line)
	}
}
