package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	domainErrors "github.com/prskeet/prskeet/internal/errors"
)

type (
	// Config is the full environment-sourced configuration surface.
	Config struct {
		GitHub  GitHubConfig
		Bluesky BlueskyConfig
		Sync    SyncConfig
		App     AppConfig
	}

	GitHubConfig struct {
		Token string `env:"GITHUB_TOKEN" env-required:"true"`
		Owner string `env:"REPO_OWNER" env-required:"true"`
		Repo  string `env:"REPO_NAME" env-required:"true"`
	}

	BlueskyConfig struct {
		Identifier string `env:"BLUESKY_IDENTIFIER"`
		Password   string `env:"BLUESKY_PASSWORD"`
		Host       string `env:"BLUESKY_HOST" env-default:"https://bsky.social"`
	}

	SyncConfig struct {
		CronSpec    string   `env:"POLL_CRON" env-default:"*/5 * * * *"`
		StartFrom   string   `env:"START_FROM"`
		IgnoreUsers []string `env:"IGNORE_USERS"`
		Timezone    string   `env:"TIMEZONE" env-default:"UTC"`
		StateFile   string   `env:"STATE_FILE"`

		// Parsed during Load, never read from the environment directly.
		StartOverride *time.Time
		Location      *time.Location
	}

	AppConfig struct {
		Mode     string `env:"MODE" env-default:"development"`
		Language string `env:"LANGUAGE" env-default:"en"`
	}
)

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, domainErrors.NewAppError(domainErrors.TypeConfiguration, "Invalid environment configuration", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Sync.StartFrom != "" {
		start, err := time.Parse(time.RFC3339, c.Sync.StartFrom)
		if err != nil {
			return domainErrors.ErrInvalidStartFrom.WithError(err).
				WithContext("start_from", c.Sync.StartFrom)
		}
		c.Sync.StartOverride = &start
	}

	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return domainErrors.ErrInvalidTimezone.WithError(err).
			WithContext("timezone", c.Sync.Timezone)
	}
	c.Sync.Location = loc

	return nil
}

// Production reports whether posts are actually sent. Any other mode only
// logs the composed posts.
func (c *AppConfig) Production() bool {
	return c.Mode == "production"
}
