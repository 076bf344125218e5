package config

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"

	"NewsBlast/internal/models"
)

type Config struct {
	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	FromAddress  string `envconfig:"FROM_ADDRESS" default:"newsletter@newsblast.org"`
	ReplyTo      string `envconfig:"REPLY_TO" default:""`

	// ----------------------------
	// Chunking
	// ----------------------------
	ChunkSize        int           `envconfig:"CHUNK_SIZE" default:"50"`
	ChunkDelay       time.Duration `envconfig:"CHUNK_DELAY" default:"1s"`
	RetryChunkSizes  []int         `envconfig:"RETRY_CHUNK_SIZES" default:"10,5,1"`
	TransportTimeout time.Duration `envconfig:"TRANSPORT_TIMEOUT" default:"30s"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database (optional; in-memory store when unset)
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}

// Settings implements the orchestrator's settings provider with one static
// configuration for every newsletter.
func (c *Config) Settings(context.Context, string) (models.SendSettings, error) {
	return models.SendSettings{
		FromAddress:      c.FromAddress,
		ReplyTo:          c.ReplyTo,
		ChunkSize:        c.ChunkSize,
		ChunkDelay:       c.ChunkDelay,
		RetryChunkSizes:  c.RetryChunkSizes,
		TransportTimeout: c.TransportTimeout,
	}, nil
}
