// Package config loads application settings from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`

	// Timezone defines the calendar day used for check-in bucketing.
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// FreezeChance is the percent chance a missed day freezes the streak.
	FreezeChance int `envconfig:"STREAK_FREEZE_CHANCE" default:"15"`

	// PointsPerEntry is awarded for the first pain entry of a day.
	PointsPerEntry int `envconfig:"POINTS_PER_ENTRY" default:"10"`

	// NightlySchedule is the cron expression for the settlement job.
	NightlySchedule string `envconfig:"NIGHTLY_SCHEDULE" default:"10 0 * * *"`
}

func (c *Config) Validate() error {
	if c.FreezeChance < 0 || c.FreezeChance > 100 {
		return fmt.Errorf("STREAK_FREEZE_CHANCE must be in [0,100], got %d", c.FreezeChance)
	}
	if c.PointsPerEntry < 0 {
		return fmt.Errorf("POINTS_PER_ENTRY must be >= 0, got %d", c.PointsPerEntry)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
