package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "bakery.db", cfg.DBPath)
	assert.Equal(t, 14, cfg.Delivery.OpenHour)
	assert.Equal(t, 18, cfg.Delivery.CloseHour)
	assert.Equal(t, 10*time.Minute, cfg.Delivery.SlotInterval)
	assert.Equal(t, 3*24*time.Hour, cfg.LeadTime)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.yaml")
	data := `
addr: ":9090"
db_path: /tmp/test.db
admin_emails:
  - boss@cestlavie.example
storage_timeout: 2s
delivery:
  open_hour: 9
  close_hour: 17
  slot_interval: 15m
smtp:
  host: mail.example.com
  port: 587
  from: noreply@cestlavie.example
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, []string{"boss@cestlavie.example"}, cfg.AdminEmails)
	assert.Equal(t, 2*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 9, cfg.Delivery.OpenHour)
	assert.Equal(t, 17, cfg.Delivery.CloseHour)
	assert.Equal(t, 15*time.Minute, cfg.Delivery.SlotInterval)
	assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))

	t.Setenv("BAKERY_ADDR", ":7070")
	t.Setenv("BAKERY_ADMIN_EMAILS", "a@x.example, b@x.example")
	t.Setenv("BAKERY_DELIVERY_OPEN_HOUR", "8")
	t.Setenv("BAKERY_STORAGE_TIMEOUT", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, []string{"a@x.example", "b@x.example"}, cfg.AdminEmails)
	assert.Equal(t, 8, cfg.Delivery.OpenHour)
	assert.Equal(t, 10*time.Second, cfg.StorageTimeout)
}

func TestLoadRejectsBadWindow(t *testing.T) {
	t.Setenv("BAKERY_DELIVERY_OPEN_HOUR", "18")
	t.Setenv("BAKERY_DELIVERY_CLOSE_HOUR", "14")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
