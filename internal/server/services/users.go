package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/auth"
	"github.com/dmitrijs2005/civicsync/internal/server/config"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
)

const minPasswordLength = 6

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Mobile     string  `json:"mobile"`
	NationalID string  `json:"aadhaar"`
	Kind       string  `json:"type"`
	AvatarURL  string  `json:"avatar"`
	Bio        *string `json:"bio,omitempty"`
	Password   string  `json:"password"`
}

type UserService struct {
	store                       store.Store
	registry                    NationalIDRegistry
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	log                         logging.Logger
}

func NewUserService(st store.Store, registry NationalIDRegistry, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		store:                       st,
		registry:                    registry,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		log:                         log.With("module", "services.users"),
	}
}

// Register creates an unverified account and signs it in. The account can
// be used with the returned token but cannot log in again until verified.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.Session, error) {
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}

	kind := models.AccountKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = models.Citizen
	}

	n := &models.NewUser{
		Username:   strings.TrimSpace(req.Username),
		Email:      strings.TrimSpace(req.Email),
		Mobile:     strings.TrimSpace(req.Mobile),
		NationalID: strings.TrimSpace(req.NationalID),
		Kind:       kind,
		AvatarURL:  req.AvatarURL,
		Bio:        req.Bio,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	n.PasswordHash = hash

	u, err := s.store.CreateUser(ctx, n)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID, "type", u.Kind)
	return s.issue(u)
}

// Login checks the password of a verified account. identifier is a username
// or an email. All failures look the same to the caller.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.Session, error) {
	u, err := s.store.FindUserByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !u.Verified || !auth.ComparePassword(u.PasswordHash, password) {
		s.log.Debug(ctx, "login rejected", "user_id", u.ID, "verified", u.Verified)
		return nil, common.ErrorUnauthorized
	}

	return s.issue(u)
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	u, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// Verify marks the account verified when nationalID is the one given at
// registration and the registry knows it. Verifying twice is harmless.
func (s *UserService) Verify(ctx context.Context, userID, nationalID string) (*models.User, error) {
	u, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return u, nil
	}

	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" || nationalID != u.NationalID {
		return nil, fmt.Errorf("%w: national id does not match the account", common.ErrorValidation)
	}

	ok, err := s.registry.Contains(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: national id not found in registry", common.ErrorValidation)
	}

	u, err = s.store.SetVerified(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user verified", "user_id", u.ID)
	return u, nil
}

func (s *UserService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.Contains(username, "@") {
		return false, fmt.Errorf("%w: invalid username", common.ErrorValidation)
	}
	return s.available(ctx, username)
}

func (s *UserService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return false, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return s.available(ctx, email)
}

func (s *UserService) available(ctx context.Context, identifier string) (bool, error) {
	_, err := s.store.FindUserByUsernameOrEmail(ctx, identifier)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return false, nil
}

// FindByIdentifier looks a user up by username or email.
func (s *UserService) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.store.FindUserByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.FindUser(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error) {
	return s.store.UpdateProfile(ctx, id, p)
}

func (s *UserService) issue(u *models.User) (*models.Session, error) {
	token, expiresAt, err := auth.GenerateToken(u.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return &models.Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
