package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/storage"
	"github.com/iliyamo/warranty-manager/internal/utils"
)

type userAdminStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	UpdateRole(ctx context.Context, id, role string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	Count(ctx context.Context, role string) (int, error)
}

// ProfileInput is a partial profile update; nil fields are left alone.
type ProfileInput struct {
	Name        *string
	Bio         *string
	SocialLinks *model.SocialLinks
}

func (i ProfileInput) Validate() error {
	var errs fieldErrors
	if i.Name != nil && strings.TrimSpace(*i.Name) == "" {
		errs.add("name", "must not be empty")
	}
	if i.Bio != nil && len(*i.Bio) > 500 {
		errs.add("bio", "at most 500 characters")
	}
	return errs.err()
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users      []model.User     `json:"users"`
	Pagination model.Pagination `json:"pagination"`
}

// UserService covers self-service profiles and admin user management.
type UserService struct {
	log        *slog.Logger
	users      userAdminStore
	audit      actionRecorder
	clock      lifecycle.Clock
	files      storage.Store
	bcryptCost int
}

func NewUserService(
	logger *slog.Logger,
	users userAdminStore,
	audit actionRecorder,
	clock lifecycle.Clock,
	files storage.Store,
	bcryptCost int,
) *UserService {
	return &UserService{
		log:        logger.With("service", "user"),
		users:      users,
		audit:      audit,
		clock:      clock,
		files:      files,
		bcryptCost: bcryptCost,
	}
}

func (s *UserService) Profile(ctx context.Context, actor Actor) (*model.User, error) {
	return s.GetByID(ctx, actor.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.SocialLinks != nil {
		u.SocialLinks = *in.SocialLinks
	}
	u.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// SetProfilePicture stores the image and removes the previous picture.
func (s *UserService) SetProfilePicture(ctx context.Context, actor Actor, u storage.Upload) (*model.User, error) {
	if err := storage.ValidateImage(u); err != nil {
		return nil, NewValidationError("profilePicture", err.Error())
	}
	usr, err := s.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	path, err := storage.Put(ctx, s.files, storage.StoredName(u, now), u)
	if err != nil {
		return nil, fmt.Errorf("store profile picture: %w", err)
	}
	old := usr.ProfilePicture
	usr.ProfilePicture = &path
	usr.UpdatedAt = now
	if err := s.users.UpdateProfile(ctx, usr); err != nil {
		_ = s.files.Remove(ctx, path)
		return nil, notFound(err, "user")
	}
	if old != nil && *old != "" {
		if err := s.files.Remove(ctx, *old); err != nil {
			s.log.WarnContext(ctx, "remove old profile picture failed", "user_id", usr.ID, "err", err)
		}
	}
	return usr, nil
}

// OpenProfilePicture opens the picture of user id, for that user or an admin.
func (s *UserService) OpenProfilePicture(ctx context.Context, actor Actor, id string) (*File, error) {
	if !actor.canAccess(id) {
		return nil, ErrForbidden
	}
	usr, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if usr.ProfilePicture == nil || *usr.ProfilePicture == "" {
		return nil, fmt.Errorf("profile picture %w", ErrNotFound)
	}
	return openFile(ctx, s.files, *usr.ProfilePicture, "", "")
}

func (s *UserService) List(ctx context.Context, page, limit int) (UserPage, error) {
	page, limit = normalizePage(page, limit, DefaultAdminLimit)
	items, err := s.users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return UserPage{}, err
	}
	total, err := s.users.Count(ctx, "")
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: items, Pagination: model.NewPagination(total, page, limit)}, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// ChangeRole is admin-only. An admin cannot demote themself.
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, id, role string) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, NewValidationError("role", "must be user or admin")
	}
	if id == actor.ID && role != model.RoleAdmin {
		return nil, NewValidationError("role", "cannot change your own role")
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldRole := u.Role
	now := s.clock.Now()
	if err := s.users.UpdateRole(ctx, id, role, now); err != nil {
		return nil, notFound(err, "user")
	}
	u.Role = role
	u.UpdatedAt = now
	s.audit.RecordAction(ctx, actor, model.AuditRoleChange, model.ResourceUser, id, map[string]any{
		"oldRole": oldRole,
		"newRole": role,
	})
	return u, nil
}

// Delete is admin-only. An admin cannot delete themself.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if id == actor.ID {
		return NewValidationError("id", "cannot delete your own account")
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user")
	}
	if u.ProfilePicture != nil && *u.ProfilePicture != "" {
		if err := s.files.Remove(ctx, *u.ProfilePicture); err != nil {
			s.log.WarnContext(ctx, "remove profile picture failed", "user_id", id, "err", err)
		}
	}
	s.audit.RecordAction(ctx, actor, model.AuditDelete, model.ResourceUser, id, map[string]any{
		"email": u.Email,
		"role":  u.Role,
	})
	return nil
}

// SeedAccount is one bootstrap account created by Seed.
type SeedAccount struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultSeedAccounts are the demo accounts created on explicit opt-in.
var DefaultSeedAccounts = []SeedAccount{
	{Name: "Admin User", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin},
	{Name: "Regular User", Email: "user@example.com", Password: "user123", Role: model.RoleUser},
}

// Seed creates each account that does not exist yet and returns how many
// were created. Existing accounts are left untouched.
func (s *UserService) Seed(ctx context.Context, accounts []SeedAccount) (int, error) {
	created := 0
	for _, a := range accounts {
		_, err := s.users.GetByEmail(ctx, a.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}
		if _, err := s.create(ctx, a); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return created, err
		}
		s.log.InfoContext(ctx, "seeded account", "email", a.Email, "role", a.Role)
		created++
	}
	return created, nil
}

// EnsureAdmin creates an admin account, or promotes and re-keys an existing
// account with that email. It reports whether the account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	var errs fieldErrors
	validateEmail(&errs, email)
	if len(password) < utils.MinPasswordLength {
		errs.add("password", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLength))
	}
	if err := errs.err(); err != nil {
		return false, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		if strings.TrimSpace(name) == "" {
			name = "Administrator"
		}
		_, err := s.create(ctx, SeedAccount{Name: name, Email: email, Password: password, Role: model.RoleAdmin})
		return err == nil, err
	}
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	if err := s.users.UpdatePassword(ctx, existing.ID, hash, now); err != nil {
		return false, err
	}
	if existing.Role != model.RoleAdmin {
		if err := s.users.UpdateRole(ctx, existing.ID, model.RoleAdmin, now); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *UserService) create(ctx context.Context, a SeedAccount) (*model.User, error) {
	hash, err := utils.HashPassword(a.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         a.Name,
		Email:        strings.ToLower(strings.TrimSpace(a.Email)),
		PasswordHash: hash,
		Role:         a.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %w", ErrAlreadyExists)
		}
		return nil, err
	}
	return u, nil
}
