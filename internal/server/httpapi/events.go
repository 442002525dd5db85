package httpapi

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// issueEvents streams a "changed" event every time the issue changes. The
// client re-fetches the issue; events carry only its id. A "ready" event
// is sent once the subscription is in place.
func (s *Server) issueEvents(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.issues.Get(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}

	changes := make(chan string, 1)
	cancel := s.notifier.Subscribe(id, func(issueID string) {
		// coalesce bursts; one pending signal is enough to trigger a re-read
		select {
		case changes <- issueID:
		default:
		}
	})
	defer cancel()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"issue_id": id})
	c.Writer.Flush()

	s.log.Debug(ctx, "event stream opened", "issue_id", id)
	defer s.log.Debug(ctx, "event stream closed", "issue_id", id)

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case issueID := <-changes:
			c.SSEvent("changed", gin.H{"issue_id": issueID})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
