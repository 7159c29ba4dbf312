package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FOLIO_API_KEY", "secret")
	cfg := Load()
	if cfg.Port != "8091" {
		t.Errorf("expected port 8091, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.Tuning.LongPress != 250*time.Millisecond {
		t.Errorf("expected 250ms long press, got %s", cfg.Tuning.LongPress)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_API_KEY", "secret")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("VIEWPORT_WIDTH", "1024.5")
	t.Setenv("GESTURE_LONG_PRESS", "400ms")
	t.Setenv("PAGINATION_NOISE_BAND", "not-a-number")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	if cfg.ViewportWidth != 1024.5 {
		t.Errorf("expected viewport width 1024.5, got %g", cfg.ViewportWidth)
	}
	if cfg.Tuning.LongPress != 400*time.Millisecond {
		t.Errorf("expected 400ms long press, got %s", cfg.Tuning.LongPress)
	}
	if cfg.Tuning.NoiseBand != 10 {
		t.Errorf("expected unparsable noise band to keep default 10, got %g", cfg.Tuning.NoiseBand)
	}
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	cfg := Config{ViewportWidth: 100, ViewportHeight: 100, Tuning: DefaultTuning()}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestTuningValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Tuning)
		wantErr bool
	}{
		{"defaults", func(*Tuning) {}, false},
		{"edge zone too wide", func(tu *Tuning) { tu.EdgeZone = 0.5 }, true},
		{"zero tolerance", func(tu *Tuning) { tu.MoveTolerance = 0 }, true},
		{"drag below tolerance", func(tu *Tuning) { tu.PageTurnDrag = 5 }, true},
		{"negative noise band", func(tu *Tuning) { tu.NoiseBand = -1 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tu := DefaultTuning()
			tc.mutate(&tu)
			if err := tu.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
