// Package config loads the server configuration from an optional YAML file
// overlaid with BAKERY_* environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cestlavie/bakery/internal/notify"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// DBPath is the SQLite database file. Defaults to bakery.db in the
	// working directory.
	DBPath string `yaml:"db_path"`
	// AdminEmails receive new-order alerts.
	AdminEmails []string `yaml:"admin_emails"`
	// VerifyBaseURL prefixes verification links in registration mails.
	VerifyBaseURL string `yaml:"verify_base_url"`
	// StorageTimeout bounds each storage operation.
	StorageTimeout time.Duration `yaml:"storage_timeout"`
	// LeadTime is the default delivery lead time for orders without an
	// explicit delivery date.
	LeadTime time.Duration `yaml:"lead_time"`

	Delivery DeliveryConfig    `yaml:"delivery"`
	SMTP     notify.SMTPConfig `yaml:"smtp"`
}

// DeliveryConfig holds the daily delivery window knobs.
type DeliveryConfig struct {
	OpenHour     int           `yaml:"open_hour"`
	CloseHour    int           `yaml:"close_hour"`
	SlotInterval time.Duration `yaml:"slot_interval"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "bakery.db",
		VerifyBaseURL:  "http://localhost:8080/api/verify",
		StorageTimeout: 5 * time.Second,
		LeadTime:       3 * 24 * time.Hour,
		Delivery: DeliveryConfig{
			OpenHour:     14,
			CloseHour:    18,
			SlotInterval: 10 * time.Minute,
		},
	}
}

// Load reads path (when non-empty and existing) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Addr, "BAKERY_ADDR")
	setString(&c.DBPath, "BAKERY_DB_PATH")
	setString(&c.VerifyBaseURL, "BAKERY_VERIFY_BASE_URL")
	setDuration(&c.StorageTimeout, "BAKERY_STORAGE_TIMEOUT")
	setDuration(&c.LeadTime, "BAKERY_LEAD_TIME")
	setInt(&c.Delivery.OpenHour, "BAKERY_DELIVERY_OPEN_HOUR")
	setInt(&c.Delivery.CloseHour, "BAKERY_DELIVERY_CLOSE_HOUR")
	setDuration(&c.Delivery.SlotInterval, "BAKERY_DELIVERY_SLOT_INTERVAL")
	setString(&c.SMTP.Host, "BAKERY_SMTP_HOST")
	setInt(&c.SMTP.Port, "BAKERY_SMTP_PORT")
	setString(&c.SMTP.Username, "BAKERY_SMTP_USERNAME")
	setString(&c.SMTP.Password, "BAKERY_SMTP_PASSWORD")
	setString(&c.SMTP.From, "BAKERY_SMTP_FROM")

	if v := os.Getenv("BAKERY_ADMIN_EMAILS"); v != "" {
		var emails []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
		c.AdminEmails = emails
	}
}

func (c *Config) validate() error {
	if c.Delivery.OpenHour < 0 || c.Delivery.OpenHour > 23 {
		return fmt.Errorf("invalid delivery open hour %d", c.Delivery.OpenHour)
	}
	if c.Delivery.CloseHour < 1 || c.Delivery.CloseHour > 24 {
		return fmt.Errorf("invalid delivery close hour %d", c.Delivery.CloseHour)
	}
	if c.Delivery.CloseHour <= c.Delivery.OpenHour {
		return fmt.Errorf("delivery close hour %d must be after open hour %d",
			c.Delivery.CloseHour, c.Delivery.OpenHour)
	}
	if c.Delivery.SlotInterval < time.Minute {
		return fmt.Errorf("delivery slot interval %s too small", c.Delivery.SlotInterval)
	}
	if c.StorageTimeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
