package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
	"github.com/gin-gonic/gin"
)

type sessionResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func newSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{User: s.User, Token: s.Token, ExpiresAt: s.ExpiresAt}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}

func (s *Server) register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest(err))
		return
	}

	sess, err := s.users.Register(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(sess))
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest(err))
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		identifier = req.Username
	}

	sess, err := s.users.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (s *Server) checkUsername(c *gin.Context) {
	ok, err := s.users.IsUsernameAvailable(c.Request.Context(), c.Query("username"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": ok})
}

func (s *Server) checkEmail(c *gin.Context) {
	ok, err := s.users.IsEmailAvailable(c.Request.Context(), c.Query("email"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": ok})
}

type verifyRequest struct {
	NationalID string `json:"aadhaar" binding:"required"`
}

func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest(err))
		return
	}

	u, err := s.users.Verify(c.Request.Context(), c.GetString(ctxUserID), req.NationalID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
