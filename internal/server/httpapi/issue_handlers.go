package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) listIssues(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		issues []*models.Issue
		err    error
	)
	switch {
	case c.Query("authorId") != "":
		issues, err = s.issues.ListByAuthor(ctx, c.Query("authorId"))
	case c.Query("managedBy") != "":
		issues, err = s.issues.ListManagedBy(ctx, c.Query("managedBy"))
	default:
		page := 1
		if raw := c.Query("page"); raw != "" {
			page, err = strconv.Atoi(raw)
			if err != nil {
				s.writeError(c, fmt.Errorf("%w: page must be a number", common.ErrorValidation))
				return
			}
		}
		issues, err = s.issues.List(ctx, page)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	c.JSON(http.StatusOK, issues)
}

func (s *Server) getIssue(c *gin.Context) {
	issue, err := s.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// createIssue takes a multipart form: title, description, comma separated
// tags, lat, lng and an optional image file.
func (s *Server) createIssue(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.PostForm("lat"), 64)
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: lat must be a number", common.ErrorValidation))
		return
	}
	lng, err := strconv.ParseFloat(c.PostForm("lng"), 64)
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: lng must be a number", common.ErrorValidation))
		return
	}

	image, err := s.formFile(c, "image")
	if err != nil {
		s.writeError(c, err)
		return
	}

	issue, err := s.issues.Report(c.Request.Context(), &models.NewIssue{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        []string{c.PostForm("tags")},
		Lat:         lat,
		Lng:         lng,
		AuthorID:    c.GetString(ctxUserID),
	}, image)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

type advanceRequest struct {
	Status  string `json:"status" form:"status" binding:"required"`
	Comment string `json:"update_text" form:"update_text"`
}

// advanceIssue accepts JSON, or a multipart form when a resolved_image
// proof photo is attached.
func (s *Server) advanceIssue(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBind(&req); err != nil {
		s.writeError(c, badRequest(err))
		return
	}

	var proof []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if proof, err = s.formFile(c, "resolved_image"); err != nil {
			s.writeError(c, err)
			return
		}
	}

	issue, err := s.lifecycle.AdvanceWithProof(c.Request.Context(), services.AdvanceRequest{
		IssueID:    c.Param("id"),
		Target:     req.Status,
		Comment:    req.Comment,
		ActorID:    c.GetString(ctxUserID),
		ProofImage: proof,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (s *Server) upvote(c *gin.Context) {
	s.increment(c, models.Upvotes)
}

func (s *Server) repost(c *gin.Context) {
	s.increment(c, models.Reposts)
}

func (s *Server) increment(c *gin.Context, kind models.CounterKind) {
	id := c.Param("id")
	n, err := s.counters.Increment(c.Request.Context(), id, kind)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue_id": id, string(kind): n})
}

// formFile reads an optional uploaded file. A missing field yields nil.
func (s *Server) formFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest(err)
	}
	if fh.Size > s.maxUpload {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", common.ErrorValidation, field, s.maxUpload)
	}
	return readAll(fh)
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, badRequest(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, badRequest(err)
	}
	return data, nil
}
