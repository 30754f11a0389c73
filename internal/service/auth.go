package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/utils"
)

type userStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
}

type tokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type settingsReader interface {
	Get(ctx context.Context) (*model.Settings, error)
}

// AuthResult is returned by every operation that issues tokens. Refresh.Raw
// is only ever sent to the client.
type AuthResult struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (i RegisterInput) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(i.Name) == "" {
		errs.add("name", "required")
	}
	validateEmail(&errs, i.Email)
	if len(i.Password) < utils.MinPasswordLength {
		errs.add("password", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLength))
	}
	return errs.err()
}

func validateEmail(errs *fieldErrors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.add("email", "required")
		return
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		errs.add("email", "invalid email")
	}
}

// AuthService issues and revokes credentials.
type AuthService struct {
	log      *slog.Logger
	users    userStore
	tokens   tokenStore
	settings settingsReader
	clock    lifecycle.Clock
	cfg      config.AuthConfig
}

func NewAuthService(
	logger *slog.Logger,
	users userStore,
	tokens tokenStore,
	settings settingsReader,
	clock lifecycle.Clock,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		log:      logger.With("service", "auth"),
		users:    users,
		tokens:   tokens,
		settings: settings,
		clock:    clock,
		cfg:      cfg,
	}
}

// Register creates a regular user and logs them in. It fails with
// ErrForbidden while registration is switched off in the admin settings.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	open, err := s.registrationOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, fmt.Errorf("registration is disabled: %w", ErrForbidden)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return s.issue(ctx, u)
}

// Login checks the credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, NewValidationError("email", "email and password required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, NewValidationError("refresh_token", "required")
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, hash, s.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
		}
		return nil, err
	}
	return s.issue(ctx, u)
}

// Logout revokes every refresh token of userID when it is known, otherwise
// only the presented token.
func (s *AuthService) Logout(ctx context.Context, userID, raw string) error {
	if userID != "" {
		return s.tokens.RevokeAllForUser(ctx, userID)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewValidationError("refresh_token", "required")
	}
	return s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
}

func (s *AuthService) Me(ctx context.Context, actor Actor) (*model.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes existing refresh tokens.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if len(next) < utils.MinPasswordLength {
		return NewValidationError("newPassword", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLength))
	}
	u, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return fmt.Errorf("current password is incorrect: %w", ErrUnauthorized)
	}
	hash, err := utils.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.clock.Now()); err != nil {
		return notFound(err, "user")
	}
	return s.tokens.RevokeAllForUser(ctx, u.ID)
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (*AuthResult, error) {
	now := s.clock.Now()
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, time.Duration(s.cfg.AccessTTLMin)*time.Minute, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(time.Duration(s.cfg.RefreshTTLDays)*24*time.Hour, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &AuthResult{User: u, Access: access, Refresh: refresh}, nil
}

func (s *AuthService) registrationOpen(ctx context.Context) (bool, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return st.SystemSettings.AllowRegistration, nil
}
