package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxUser   = "user"
)

// authRequired resolves the bearer token to a user and stores it in the
// gin context under "user_id" and "user".
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || token == "" {
			s.writeError(c, common.ErrorUnauthorized)
			return
		}

		u, err := s.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.log.Debug(c.Request.Context(), "token rejected", "error", err)
			s.writeError(c, err)
			return
		}

		c.Set(ctxUserID, u.ID)
		c.Set(ctxUser, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
