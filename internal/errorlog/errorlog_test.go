package errorlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ims_backend/platform/apperr"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (f *fakeStore) Insert(_ context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func newRouter(store Store) *gin.Engine {
	r := gin.New()
	r.Use(NewRecorder(store, logger.Discard()).Middleware())
	r.GET("/boom", func(c *gin.Context) {
		httpkit.HandleError(c, errors.New("connection reset"))
	})
	r.GET("/missing", func(c *gin.Context) {
		httpkit.HandleError(c, apperr.NotFound("inquiry not found"))
	})
	return r
}

func TestMiddleware_RecordsUntypedErrors(t *testing.T) {
	store := &fakeStore{}
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.Source != SourceHTTP || entry.Message != "connection reset" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Context["path"] != "/boom" || entry.Context["status"] != http.StatusInternalServerError {
		t.Fatalf("unexpected context %+v", entry.Context)
	}
}

func TestMiddleware_IgnoresClientErrors(t *testing.T) {
	store := &fakeStore{}
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(store.entries))
	}
}

func TestMiddleware_StoreFailureKeepsResponse(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRecord_NilErrorIsIgnored(t *testing.T) {
	store := &fakeStore{}
	NewRecorder(store, logger.Discard()).Record(context.Background(), SourceScheduler, nil, nil)
	if len(store.entries) != 0 {
		t.Fatalf("expected nothing recorded")
	}
}

func TestMiddleware_RecordsRequestID(t *testing.T) {
	store := &fakeStore{}
	r := gin.New()
	r.Use(httpkit.RequestID(), NewRecorder(store, logger.Discard()).Middleware())
	r.GET("/boom", func(c *gin.Context) { httpkit.HandleError(c, errors.New("connection reset")) })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(httpkit.RequestIDHeader, "req-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.entries) != 1 || store.entries[0].Context["requestId"] != "req-9" {
		t.Fatalf("expected request id on entry, got %+v", store.entries)
	}
}

func TestRecord_StoreFailureIsLoggedWithRequest(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-3")

	NewRecorder(&fakeStore{err: errors.New("db down")}, log).Record(ctx, SourceScheduler, errors.New("dispatch failed"), nil)

	line := buf.String()
	if !strings.Contains(line, `"msg":"database_error"`) || !strings.Contains(line, `"request_id":"req-3"`) {
		t.Fatalf("expected database_error tagged with request id, got %s", line)
	}
	if !strings.Contains(line, "db down") {
		t.Fatalf("expected store error in log, got %s", line)
	}
}
