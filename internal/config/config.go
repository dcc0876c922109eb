package config

import (
	"fmt"
	"time"
)

const (
	StoreDriverNone     = "none"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	maxHostsLimit = 16
)

type Config struct {
	Env                   string
	HTTPAddr              string
	MaxHosts              int
	InvitationTTL         time.Duration
	AutoAcceptInvitations bool
	StoreDriver           string
	DatabaseURL           string
	SQLitePath            string
	SessionWebhookURL     string
	HistoryQueueSize      int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxHosts <= 0 || c.MaxHosts > maxHostsLimit {
		return fmt.Errorf("MAX_HOSTS must be between 1 and %d, got %d", maxHostsLimit, c.MaxHosts)
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("INVITATION_TTL must be positive, got %s", c.InvitationTTL)
	}
	if c.HistoryQueueSize <= 0 {
		return fmt.Errorf("HISTORY_QUEUE_SIZE must be positive, got %d", c.HistoryQueueSize)
	}
	switch c.StoreDriver {
	case StoreDriverNone:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", StoreDriverSQLite)
		}
	default:
		return fmt.Errorf("STORE_DRIVER is invalid: %q", c.StoreDriver)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "STORE_DRIVER", value: c.StoreDriver},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasHistoryStore reports whether session history is persisted.
func (c *Config) HasHistoryStore() bool {
	return c.StoreDriver != StoreDriverNone
}
