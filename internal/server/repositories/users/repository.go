package users

import (
	"context"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.NewUser) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUsernameOrEmail matches the username case-insensitively and the
	// email exactly.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	SetVerified(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) (*models.User, error)
}
