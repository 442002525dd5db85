package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/gin-gonic/gin"
)

// publicUser is what anyone may see of an account.
type publicUser struct {
	ID        string             `json:"id"`
	Username  string             `json:"username"`
	Kind      models.AccountKind `json:"type"`
	AvatarURL string             `json:"avatar_url,omitempty"`
	Bio       *string            `json:"bio,omitempty"`
	Verified  bool               `json:"verified"`
	CreatedAt time.Time          `json:"created_at"`
}

func toPublicUser(u *models.User) publicUser {
	return publicUser{
		ID:        u.ID,
		Username:  u.Username,
		Kind:      u.Kind,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicUser(u))
}

type profileRequest struct {
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
	Mobile    *string `json:"mobile"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest(err))
		return
	}

	u, err := s.users.UpdateProfile(c.Request.Context(), c.GetString(ctxUserID), models.ProfileUpdate{
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Mobile:    req.Mobile,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
