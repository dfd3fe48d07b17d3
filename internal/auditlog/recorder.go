package auditlog

import (
	"alpha-qms/internal/worker"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Recorder appends audit entries off the request path
type Recorder struct {
	db   *gorm.DB
	pool *worker.Pool
}

func NewRecorder(db *gorm.DB, pool *worker.Pool) *Recorder {
	return &Recorder{db: db, pool: pool}
}

// Record persists one entry best-effort on the worker pool. Failures are
// logged and swallowed, an audit miss must not fail the action itself.
func (r *Recorder) Record(entry Entry) {
	entry.CreatedAt = time.Now().UTC()
	r.pool.Submit(func(ctx context.Context) error {
		if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
			log.Printf("[ERROR] writing audit log entry: %v", err)
		}
		return nil
	})
}

// List returns the newest entries, optionally filtered by resource
func (r *Recorder) List(ctx context.Context, resource string, limit int) ([]Entry, error) {
	var entries []Entry
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// Middleware records every mutating request after it completes
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		c.Next()

		actorID, _ := c.Get("user_id")
		id, _ := actorID.(uint64)

		resource, resourceID := splitResource(path)
		r.Record(Entry{
			ActorID:    id,
			Action:     fmt.Sprintf("%s %s", method, path),
			Resource:   resource,
			ResourceID: resourceID,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: c.Writer.Status(),
		})
	}
}

// splitResource derives (resource, id) from an API path like
// /api/documents/42/submit
func splitResource(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && parts[0] == "api" {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}
