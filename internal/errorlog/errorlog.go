// Package errorlog persists server-side failures to the error_log table so
// they can be inspected without log access.
package errorlog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ims_backend/platform/httpkit"
	"ims_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SourceHTTP      = "http"
	SourceScheduler = "scheduler"

	writeTimeout = 3 * time.Second
)

// Entry is one error_log row.
type Entry struct {
	Source  string
	Message string
	Context map[string]interface{}
}

// Store writes entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
}

// PostgresStore writes entries to error_log.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	fields := e.Context
	if fields == nil {
		fields = map[string]interface{}{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal error context: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO error_log (source, message, context) VALUES ($1, $2, $3::jsonb)
	`, e.Source, e.Message, raw); err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}

// Recorder records errors best-effort. A failed write is only logged.
type Recorder struct {
	store Store
	log   *logger.Logger
}

func NewRecorder(store Store, log *logger.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record writes err under source. It never fails the caller and outlives a
// cancelled request context.
func (r *Recorder) Record(ctx context.Context, source string, err error, fields map[string]interface{}) {
	if err == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if writeErr := r.store.Insert(ctx, Entry{Source: source, Message: err.Error(), Context: fields}); writeErr != nil {
		r.log.WithContext(ctx).DatabaseError("write error log ("+source+")", writeErr)
	}
}

// Middleware records the errors attached to requests that ended with a 5xx.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusInternalServerError || len(c.Errors) == 0 {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := map[string]interface{}{
			"method": c.Request.Method,
			"path":   path,
			"status": status,
		}
		if id := httpkit.RequestIDFromContext(c.Request.Context()); id != "" {
			fields["requestId"] = id
		}
		if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
			fields["userId"] = identity.UserID().String()
		}
		r.Record(c.Request.Context(), SourceHTTP, c.Errors.Last().Err, fields)
	}
}
