//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM capture_settings`)
		s.Close()
	})
	return s
}

func TestIntegration_CaptureSettingsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.pool.Exec(ctx, `DELETE FROM capture_settings`); err != nil {
		t.Fatalf("clear table: %v", err)
	}
	_, found, err := s.LoadCaptureSettings(ctx)
	if err != nil {
		t.Fatalf("LoadCaptureSettings failed: %v", err)
	}
	if found {
		t.Fatal("expected no settings in an empty table")
	}

	after := 4
	cfg := lead.DefaultCaptureConfig()
	cfg.Mode = lead.ModeContinuous
	cfg.AppendMessage = "Leave your email"
	cfg.AppendAfter = &after

	if err := s.SaveCaptureSettings(ctx, cfg, "integration-test"); err != nil {
		t.Fatalf("SaveCaptureSettings failed: %v", err)
	}

	got, found, err := s.LoadCaptureSettings(ctx)
	if err != nil || !found {
		t.Fatalf("expected stored settings, found=%v err=%v", found, err)
	}
	if got.Mode != lead.ModeContinuous || got.AppendMessage != "Leave your email" {
		t.Errorf("unexpected settings: %+v", got)
	}
	if got.AppendAfter == nil || *got.AppendAfter != 4 {
		t.Errorf("expected append_after 4, got %v", got.AppendAfter)
	}

	cfg.Threshold = 7
	if err := s.SaveCaptureSettings(ctx, cfg, "integration-test"); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	got, _, err = s.LoadCaptureSettings(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Threshold != 7 {
		t.Errorf("expected upsert to replace settings, threshold=%d", got.Threshold)
	}
}
