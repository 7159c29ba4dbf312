package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	FolioAPIKey string

	// Host webhook that receives report batches. Empty disables delivery.
	WebhookURL    string
	WebhookAPIKey string

	// Delivery worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Session state
	SessionTTL time.Duration

	// Default surface geometry for new sessions
	ViewportWidth  float64
	ViewportHeight float64
	CharWidth      float64
	LineHeight     float64
	Margin         float64

	// PDF
	PDFFallbackPdftotext bool

	Tuning Tuning
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		FolioAPIKey: os.Getenv("FOLIO_API_KEY"),

		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		WebhookAPIKey: os.Getenv("WEBHOOK_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 256),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),

		ViewportWidth:  envFloat("VIEWPORT_WIDTH", 800),
		ViewportHeight: envFloat("VIEWPORT_HEIGHT", 600),
		CharWidth:      envFloat("CHAR_WIDTH", 10),
		LineHeight:     envFloat("LINE_HEIGHT", 20),
		Margin:         envFloat("PAGE_MARGIN", 20),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		Tuning: LoadTuning(),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 256
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.CharWidth <= 0 {
		cfg.CharWidth = 10
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = 20
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.FolioAPIKey == "" {
		return fmt.Errorf("FOLIO_API_KEY is required")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %gx%g", c.ViewportWidth, c.ViewportHeight)
	}
	return c.Tuning.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
