// Package memory is the ephemeral Store backend. It keeps everything in
// process memory, serializes writes per issue and is used by the CLI, by
// tests and by the server when no database is configured.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

var _ store.Store = (*Store)(nil)

type issueEntry struct {
	mu      sync.Mutex
	issue   models.Issue
	updates []models.Update // append order
}

type Store struct {
	// mu guards the maps below, never the contents of an issueEntry.
	mu        sync.RWMutex
	users     map[string]*models.User
	usernames map[string]string
	emails    map[string]string
	issues    map[string]*issueEntry

	images   images.Store
	log      logging.Logger
	now      func() time.Time
	fixtures bool
}

type Option func(*Store)

// WithImages sets the image store. The default keeps images in memory.
func WithImages(img images.Store) Option {
	return func(s *Store) { s.images = img }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFixtures seeds the demo users and issues.
func WithFixtures() Option {
	return func(s *Store) { s.fixtures = true }
}

func New(opts ...Option) *Store {
	s := &Store{
		users:     make(map[string]*models.User),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		issues:    make(map[string]*issueEntry),
		images:    images.NewMemoryStore(),
		log:       logging.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "store.memory")
	if s.fixtures {
		s.seed()
	}
	return s
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.Bio != nil {
		bio := *u.Bio
		c.Bio = &bio
	}
	return &c
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (s *Store) FindUserByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[strings.ToLower(identifier)]
	if !ok {
		id, ok = s.emails[identifier]
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) CreateUser(ctx context.Context, n *models.NewUser) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertUser(n, common.NewID(), s.now(), false)
}

// insertUser expects s.mu to be held.
func (s *Store) insertUser(n *models.NewUser, id string, created time.Time, verified bool) (*models.User, error) {
	lower := strings.ToLower(n.Username)
	if _, taken := s.usernames[lower]; taken {
		return nil, common.ErrorConflict
	}
	if _, taken := s.emails[n.Email]; taken {
		return nil, common.ErrorConflict
	}

	u := &models.User{
		ID:           id,
		Username:     n.Username,
		Email:        n.Email,
		Mobile:       n.Mobile,
		NationalID:   n.NationalID,
		Kind:         n.Kind,
		AvatarURL:    n.AvatarURL,
		Bio:          n.Bio,
		Verified:     verified,
		CreatedAt:    created,
		PasswordHash: n.PasswordHash,
	}
	u = copyUser(u)

	s.users[id] = u
	s.usernames[lower] = id
	s.emails[n.Email] = id
	return copyUser(u), nil
}

func (s *Store) SetVerified(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Verified = true
	return copyUser(u), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.Apply(u)
	return copyUser(u), nil
}

func (s *Store) entry(id string) (*issueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.issues[id]
	return e, ok
}

func (s *Store) entries() []*issueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*issueEntry, 0, len(s.issues))
	for _, e := range s.issues {
		out = append(out, e)
	}
	return out
}

func (s *Store) authorSummary(authorID string) models.AuthorSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[authorID]; ok {
		return u.Summary()
	}
	return models.AuthorSummary{ID: authorID}
}

// snapshot copies e. The caller holds e.mu.
func (s *Store) snapshot(e *issueEntry, withUpdates bool) *models.Issue {
	i := e.issue
	i.Tags = slices.Clone(e.issue.Tags)
	if e.issue.ResolvedImageURL != nil {
		url := *e.issue.ResolvedImageURL
		i.ResolvedImageURL = &url
	}
	i.Author = s.authorSummary(i.AuthorID)
	i.Updates = nil
	if withUpdates {
		i.Updates = make([]models.Update, 0, len(e.updates))
		for k := len(e.updates) - 1; k >= 0; k-- {
			i.Updates = append(i.Updates, e.updates[k])
		}
	}
	return &i
}

func newestFirst(a, b *models.Issue) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

func (s *Store) collect(keep func(e *issueEntry) bool) []*models.Issue {
	result := make([]*models.Issue, 0)
	for _, e := range s.entries() {
		e.mu.Lock()
		if keep(e) {
			result = append(result, s.snapshot(e, false))
		}
		e.mu.Unlock()
	}
	slices.SortFunc(result, newestFirst)
	return result
}

func (s *Store) ListIssues(ctx context.Context, page int) ([]*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := s.collect(func(*issueEntry) bool { return true })

	start := (store.NormalizePage(page) - 1) * common.PageSize
	if start >= len(all) {
		return []*models.Issue{}, nil
	}
	end := min(start+common.PageSize, len(all))
	return all[start:end], nil
}

func (s *Store) FindIssueByID(ctx context.Context, id string) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.entry(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.snapshot(e, true), nil
}

func (s *Store) CreateIssue(ctx context.Context, n *models.NewIssue, image []byte) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.FindUser(ctx, n.AuthorID); err != nil {
		return nil, err
	}

	var imageURL string
	if len(image) > 0 {
		url, err := s.images.Put(ctx, "issues", image)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	e := &issueEntry{issue: models.Issue{
		ID:          common.NewID(),
		Title:       n.Title,
		Description: n.Description,
		Tags:        models.NormalizeTags(n.Tags),
		ImageURL:    imageURL,
		Lat:         n.Lat,
		Lng:         n.Lng,
		Status:      models.Pending,
		AuthorID:    n.AuthorID,
		CreatedAt:   s.now(),
	}}

	s.mu.Lock()
	s.issues[e.issue.ID] = e
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return s.snapshot(e, true), nil
}

func (s *Store) ListIssuesByAuthor(ctx context.Context, authorID string) ([]*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.collect(func(e *issueEntry) bool { return e.issue.AuthorID == authorID }), nil
}

func (s *Store) ListIssuesManagedByAuthority(ctx context.Context, authorityID string) ([]*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.collect(func(e *issueEntry) bool {
		return slices.ContainsFunc(e.updates, func(u models.Update) bool { return u.AuthorityID == authorityID })
	}), nil
}

func (s *Store) Transition(ctx context.Context, issueID string, req models.TransitionRequest, guard models.TransitionGuard) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.entry(issueID)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if guard != nil {
		if err := guard(s.snapshot(e, true)); err != nil {
			return nil, err
		}
	}

	u := req.Update
	if u.ID == "" {
		u.ID = common.NewID()
	}
	u.IssueID = issueID
	u.CreatedAt = s.now()

	// the update lands before the status it explains
	e.updates = append(e.updates, u)
	e.issue.Status = req.Target
	if req.ResolvedImageURL != nil {
		url := *req.ResolvedImageURL
		e.issue.ResolvedImageURL = &url
	}

	return s.snapshot(e, true), nil
}

func (s *Store) IncrementCounter(ctx context.Context, issueID string, kind models.CounterKind) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !kind.Valid() {
		return 0, common.ErrorValidation
	}
	e, ok := s.entry(issueID)
	if !ok {
		return 0, common.ErrorNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if kind == models.Upvotes {
		e.issue.Upvotes++
		return e.issue.Upvotes, nil
	}
	e.issue.Reposts++
	return e.issue.Reposts, nil
}

func (s *Store) Close() error {
	return nil
}
