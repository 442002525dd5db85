package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/auth"
	"github.com/dmitrijs2005/civicsync/internal/server/config"
	"github.com/dmitrijs2005/civicsync/internal/server/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, *memory.Store) {
	t.Helper()

	prev := auth.PasswordCost
	auth.PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { auth.PasswordCost = prev })

	cfg := &config.Config{SecretKey: "test-secret", AccessTokenValidityDuration: time.Hour}
	st := memory.New(memory.WithFixtures())
	return NewUserService(st, NewStaticRegistry(memory.FixtureNationalIDs...), cfg, logging.NewNop()), st
}

func registration(username, email, nationalID string) RegisterRequest {
	return RegisterRequest{
		Username:   username,
		Email:      email,
		Mobile:     "9811111111",
		NationalID: nationalID,
		Password:   "hunter22",
	}
}

func TestRegister_CreatesUnverifiedCitizen(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, registration("priya", "priya@example.com", "567890123456"))
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, models.Citizen, sess.User.Kind)
	assert.False(t, sess.User.Verified)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	u, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)
}

func TestRegister_DuplicateAlice(t *testing.T) {
	svc, st := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("Alice", "other@example.com", "567890123456"))
	require.ErrorIs(t, err, common.ErrorConflict)

	_, err = st.FindUserByUsernameOrEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "no record may be created on conflict")
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newUserService(t)

	req := registration("priya", "priya@example.com", "")
	req.Password = "123"
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrorValidation)

	req = registration("priya", "not-an-email", "")
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrorValidation)

	req = registration("priya", "priya@example.com", "")
	req.Kind = "mayor"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ALICE", memory.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.ID)

	sess, err = svc.Login(ctx, "roads@city.example", memory.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, "a1", sess.User.ID)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = svc.Login(ctx, "nobody", memory.FixturePassword)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	// meera has not verified yet
	_, err = svc.Login(ctx, "meera", memory.FixturePassword)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAuthenticate_BadToken(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	tok, _, err := auth.GenerateToken("ghost", []byte("test-secret"), time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestVerify(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "u3", "234567890123")
	assert.ErrorIs(t, err, common.ErrorValidation, "someone else's id")

	u, err := svc.Verify(ctx, "u3", "456789012345")
	require.NoError(t, err)
	assert.True(t, u.Verified)

	u, err = svc.Verify(ctx, "u3", "")
	require.NoError(t, err, "verifying twice is a no-op")
	assert.True(t, u.Verified)

	sess, err := svc.Login(ctx, "meera", memory.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, "u3", sess.User.ID)
}

func TestVerify_UnknownToRegistry(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, registration("priya", "priya@example.com", "111122223333"))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, sess.User.ID, "111122223333")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.Verify(ctx, "nobody", "111122223333")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAvailability(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	ok, err := svc.IsUsernameAvailable(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsUsernameAvailable(ctx, "zoe")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsEmailAvailable(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsEmailAvailable(ctx, "zoe@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.IsEmailAvailable(ctx, "zoe")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newUserService(t)

	bio := "Weekend volunteer"
	u, err := svc.UpdateProfile(context.Background(), "u2", models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, u.Bio)
	assert.Equal(t, bio, *u.Bio)

	got, err := svc.GetUser(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, bio, *got.Bio)
}

func TestStaticRegistry(t *testing.T) {
	r := NewStaticRegistry(" 123 ", "", "456")
	ok, err := r.Contains(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.Contains(context.Background(), "789")
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Contains(ctx, "123")
	assert.ErrorIs(t, err, context.Canceled)
}
