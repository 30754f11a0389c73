package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/warranty-manager/internal/model"
)

// settingsRowID is the primary key of the single settings row.
const settingsRowID = 1

// SettingsRepo stores the admin settings document.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns ErrNotFound until settings have been saved once.
func (r *SettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM settings WHERE id = ?", settingsRowID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var s model.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the settings document.
func (r *SettingsRepo) Save(ctx context.Context, s *model.Settings, at time.Time) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO settings (id, payload, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)",
		settingsRowID, string(raw), at)
	return err
}
