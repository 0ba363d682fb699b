package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marineworld/booking/internal/pricing"
)

// SettingsRepo persists the business configuration as a single JSON
// document keyed by name.  The table acts as a tiny key-value store so
// adding a settings field never needs a migration.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

const pricingSettingsKey = "pricing"

// Load returns the stored settings, falling back to defaults when
// nothing has been saved yet.
func (r *SettingsRepo) Load(ctx context.Context) (pricing.Settings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value_json FROM settings WHERE name = ?`, pricingSettingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.DefaultSettings(), nil
	}
	if err != nil {
		return pricing.Settings{}, err
	}
	var s pricing.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return pricing.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save upserts the settings document.
func (r *SettingsRepo) Save(ctx context.Context, s pricing.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (name, value_json) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE value_json = VALUES(value_json), updated_at = UTC_TIMESTAMP()`,
		pricingSettingsKey, raw)
	return err
}
