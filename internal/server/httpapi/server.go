// Package httpapi exposes the CivicSync services over HTTP with gin. Issue
// changes are streamed to browsers as server-sent events.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/server/notifier"
	"github.com/dmitrijs2005/civicsync/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	defaultMaxUpload = 10 << 20
	defaultHeartbeat = 25 * time.Second
)

// Deps are the services the API serves. Limiter may be nil.
type Deps struct {
	Users     *services.UserService
	Issues    *services.IssueService
	Lifecycle *services.LifecycleService
	Counters  *services.CounterService
	Notifier  notifier.Notifier
	Limiter   *RateLimiter
	Log       logging.Logger
}

type Server struct {
	users     *services.UserService
	issues    *services.IssueService
	lifecycle *services.LifecycleService
	counters  *services.CounterService
	notifier  notifier.Notifier
	limiter   *RateLimiter
	log       logging.Logger

	maxUpload int64
	heartbeat time.Duration
}

type Option func(*Server)

// WithHeartbeat sets how often an idle event stream sends a keep-alive.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

func WithMaxUpload(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

func NewServer(d Deps, opts ...Option) *Server {
	s := &Server{
		users:     d.Users,
		issues:    d.Issues,
		lifecycle: d.Lifecycle,
		counters:  d.Counters,
		notifier:  d.Notifier,
		limiter:   d.Limiter,
		log:       d.Log.With("module", "httpapi"),
		maxUpload: defaultMaxUpload,
		heartbeat: defaultHeartbeat,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	r.MaxMultipartMemory = s.maxUpload

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authn := s.authRequired()

	a := r.Group("/api/auth")
	{
		a.POST("/register", s.register)
		a.POST("/login", s.login)
		a.GET("/check-username", s.checkUsername)
		a.GET("/check-email", s.checkEmail)
		a.POST("/verify", authn, s.verify)
		a.GET("/me", authn, s.me)
	}

	u := r.Group("/api/users")
	{
		u.PATCH("/me", authn, s.updateProfile)
		u.GET("/:id", s.getUser)
	}

	create := []gin.HandlerFunc{authn}
	if s.limiter != nil {
		create = append(create, s.limiter.Middleware())
	}
	create = append(create, s.createIssue)

	i := r.Group("/api/issues")
	{
		i.GET("", s.listIssues)
		i.POST("", create...)
		i.GET("/:id", s.getIssue)
		i.PATCH("/:id/status", authn, s.advanceIssue)
		i.POST("/:id/upvote", authn, s.upvote)
		i.POST("/:id/repost", authn, s.repost)
		i.GET("/:id/events", s.issueEvents)
	}

	return r
}
