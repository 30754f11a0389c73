package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/iliyamo/warranty-manager/internal/model"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

var userColumns = []string{
	"id", "name", "email", "password_hash", "role", "profile_picture", "bio", "social_links", "created_at", "updated_at",
}

// Create inserts u. The password must already be hashed. Returns
// ErrDuplicate when the email is taken.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	query, args, err := qb.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.ProfilePicture, u.Bio, u.SocialLinks, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where sq.Eq) (*model.User, error) {
	query, args, err := qb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := sqlscan.Get(ctx, r.db, &u, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// UpdateProfile writes the self-editable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	return execAffected(ctx, r.db, qb.Update("users").SetMap(map[string]any{
		"name":            u.Name,
		"bio":             u.Bio,
		"social_links":    u.SocialLinks,
		"profile_picture": u.ProfilePicture,
		"updated_at":      u.UpdatedAt,
	}).Where(sq.Eq{"id": u.ID}))
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return execAffected(ctx, r.db, qb.Update("users").
		Set("password_hash", hash).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
}

// UpdateRole changes users.role.
func (r *UserRepo) UpdateRole(ctx context.Context, id, role string, at time.Time) error {
	return execAffected(ctx, r.db, qb.Update("users").
		Set("role", role).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
}

// Delete removes the user. Refresh tokens cascade.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return execAffected(ctx, r.db, qb.Delete("users").Where(sq.Eq{"id": id}))
}

// List returns one page of users, newest first.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	query, args, err := qb.Select(userColumns...).From("users").
		OrderBy("created_at DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	if err := sqlscan.Select(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Count counts users, optionally restricted to one role.
func (r *UserRepo) Count(ctx context.Context, role string) (int, error) {
	q := qb.Select("COUNT(*)").From("users")
	if role != "" {
		q = q.Where(sq.Eq{"role": role})
	}
	return count(ctx, r.db, q)
}
