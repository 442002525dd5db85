// Package images stores the photos attached to issues and returns the URL
// under which each one is served.
package images

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Store saves image bytes and returns a URL for them. Failures are reported
// as common.ErrorBackendUnavailable.
type Store interface {
	Put(ctx context.Context, prefix string, data []byte) (string, error)
}

// NewStorageKey builds a date-partitioned, collision-free object key.
func NewStorageKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v", prefix, now.Year(), now.Month(), now.Day(), uuid.New())
}

// ContentType sniffs the MIME type from the first bytes of data.
func ContentType(data []byte) string {
	return http.DetectContentType(data)
}
