package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/multihost/internal/config"
)

type envConfig struct {
	Env                   string        `env:"ENV" envDefault:"production"`
	HTTPAddr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	MaxHosts              int           `env:"MAX_HOSTS" envDefault:"4"`
	InvitationTTL         time.Duration `env:"INVITATION_TTL" envDefault:"24h"`
	AutoAcceptInvitations bool          `env:"AUTO_ACCEPT_INVITATIONS" envDefault:"false"`
	StoreDriver           string        `env:"STORE_DRIVER" envDefault:"none"`
	DatabaseURL           string        `env:"DATABASE_URL"`
	SQLitePath            string        `env:"SQLITE_PATH" envDefault:"multihost.db"`
	SessionWebhookURL     string        `env:"SESSION_WEBHOOK_URL"`
	HistoryQueueSize      int           `env:"HISTORY_QUEUE_SIZE" envDefault:"256"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                   raw.Env,
		HTTPAddr:              raw.HTTPAddr,
		MaxHosts:              raw.MaxHosts,
		InvitationTTL:         raw.InvitationTTL,
		AutoAcceptInvitations: raw.AutoAcceptInvitations,
		StoreDriver:           raw.StoreDriver,
		DatabaseURL:           raw.DatabaseURL,
		SQLitePath:            raw.SQLitePath,
		SessionWebhookURL:     raw.SessionWebhookURL,
		HistoryQueueSize:      raw.HistoryQueueSize,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
