package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

// LoadCaptureSettings returns the stored capture settings. found is false
// when nothing has been saved yet.
func (s *Store) LoadCaptureSettings(ctx context.Context) (cfg lead.CaptureConfig, found bool, err error) {
	var raw []byte
	err = s.pool.QueryRow(ctx, `SELECT config FROM capture_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.CaptureConfig{}, false, nil
	}
	if err != nil {
		return lead.CaptureConfig{}, false, fmt.Errorf("query capture settings: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return lead.CaptureConfig{}, false, fmt.Errorf("decode capture settings: %w", err)
	}
	return cfg, true, nil
}

// SaveCaptureSettings replaces the stored capture settings.
func (s *Store) SaveCaptureSettings(ctx context.Context, cfg lead.CaptureConfig, updatedBy string) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode capture settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO capture_settings (id, config, updated_by, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET config = EXCLUDED.config, updated_by = EXCLUDED.updated_by, updated_at = now()`,
		raw, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("save capture settings: %w", err)
	}
	return nil
}
