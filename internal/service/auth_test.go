package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/utils"
)

type memTokens struct {
	live map[string]string // hash -> user id
}

func newMemTokens() *memTokens { return &memTokens{live: map[string]string{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	m.live[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string, _ time.Time) (string, error) {
	id, ok := m.live[hash]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(m.live, hash)
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	for h, id := range m.live {
		if id == userID {
			delete(m.live, h)
		}
	}
	return nil
}

type settingsMock struct {
	st  *model.Settings
	err error
}

func (m *settingsMock) Get(context.Context) (*model.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.st == nil {
		return nil, repository.ErrNotFound
	}
	cp := *m.st
	return &cp, nil
}

func (m *settingsMock) Save(_ context.Context, s *model.Settings, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	cp := *s
	m.st = &cp
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
}

func newAuthFixture(settings *settingsMock) (*AuthService, *memUsers, *memTokens) {
	users := newMemUsers()
	tokens := newMemTokens()
	svc := NewAuthService(discardLogger(), users, tokens, settings, newClock(), testAuthConfig())
	return svc, users, tokens
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, users, tokens := newAuthFixture(&settingsMock{})
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.NotEqual(t, "password1", users.byID[res.User.ID].PasswordHash)
	assert.Contains(t, tokens.live, utils.HashRefreshRaw(res.Refresh.Raw))
	assert.NotContains(t, tokens.live, res.Refresh.Raw, "only the hash is stored")

	claims, err := utils.ParseAccessToken("test-secret", res.Access.Token,
		jwt.WithTimeFunc(func() time.Time { return testNow }))
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
	assert.Equal(t, model.RoleUser, claims.Role)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Login(ctx, "ada@example.com", "password1")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAuthFixture(&settingsMock{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "not-an-email", Password: "short"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestAuthService_Register_Disabled(t *testing.T) {
	t.Parallel()

	st := &model.Settings{SystemSettings: model.SystemSettings{AllowRegistration: false}}
	svc, users, _ := newAuthFixture(&settingsMock{st: st})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, users.byID)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	t.Parallel()

	svc, _, tokens := newAuthFixture(&settingsMock{})
	ctx := context.Background()
	first, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh.Raw, second.Refresh.Raw)
	assert.NotContains(t, tokens.live, utils.HashRefreshRaw(first.Refresh.Raw))

	_, err = svc.Refresh(ctx, first.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthorized, "a rotated token cannot be reused")
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	svc, _, tokens := newAuthFixture(&settingsMock{})
	ctx := context.Background()
	a, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ada@example.com", "password1")
	require.NoError(t, err)
	require.Len(t, tokens.live, 2)

	require.NoError(t, svc.Logout(ctx, "", a.Refresh.Raw))
	assert.Len(t, tokens.live, 1)

	require.NoError(t, svc.Logout(ctx, a.User.ID, ""))
	assert.Empty(t, tokens.live)

	assert.ErrorIs(t, svc.Logout(ctx, "", ""), ErrValidation)
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	svc, users, tokens := newAuthFixture(&settingsMock{})
	ctx := context.Background()
	res, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	actor := Actor{ID: res.User.ID, Role: model.RoleUser}

	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "wrong", "password2"), ErrUnauthorized)
	assert.ErrorIs(t, svc.ChangePassword(ctx, actor, "password1", "short"), ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, actor, "password1", "password2"))
	assert.True(t, utils.VerifyPassword(users.byID[res.User.ID].PasswordHash, "password2"))
	assert.Empty(t, tokens.live)
}
