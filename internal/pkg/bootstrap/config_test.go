package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: engine-service
  port: 9090
  admin_emails: [owner@example.com]
  staff_emails: [desk@example.com, kitchen@example.com]
  store:
    backend: mysql
    timeout: 1500ms
  notify:
    backends: [log, kafka]
infra:
  mysql:
    dsn: "root:root@tcp(localhost:3306)/memberflow?parseTime=true"
  kafka:
    brokers: [kafka-1:9092]
    topic: workflow-notifications
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, StoreMySQL, cfg.App.Store.Backend)
	assert.Equal(t, 1500*time.Millisecond, cfg.App.Store.Timeout)
	assert.Equal(t, []string{"desk@example.com", "kitchen@example.com"}, cfg.App.StaffEmails)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Infra.Kafka.Brokers)
	// 未出现在文件里的字段保留默认值
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 20, cfg.Infra.MySQL.MaxOpenConns)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("APP_PORT", "7070")
	t.Setenv("ADMIN_EMAILS", "a@example.com,b@example.com")
	t.Setenv("STORE_TIMEOUT", "5s")
	t.Setenv("KAFKA_TOPIC", "overridden")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.App.AdminEmails)
	assert.Equal(t, 5*time.Second, cfg.App.Store.Timeout)
	assert.Equal(t, "overridden", cfg.Infra.Kafka.Topic)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.App.Store.Backend)
	assert.Equal(t, []string{"log"}, cfg.App.Notify.Backends)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.App.Port = 0 }},
		{"unknown store", func(c *Config) { c.App.Store.Backend = "postgres" }},
		{"mysql without dsn", func(c *Config) { c.App.Store.Backend = StoreMySQL }},
		{"redis without addr", func(c *Config) { c.App.Store.Backend = StoreRedis; c.Infra.Redis.Addr = "" }},
		{"webhook without url", func(c *Config) { c.App.Notify.Backends = []string{"webhook"} }},
		{"unknown notifier", func(c *Config) { c.App.Notify.Backends = []string{"sms"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInitAndGetCurrentConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, sampleConfig))
	cfg, err := Init()
	require.NoError(t, err)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestMerchantSeeds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
app:
  merchants:
    - id: m-1
      name: Corner Cafe
      slug: corner-cafe
      accent_color: "#AA3300"
      active: true
`))
	require.NoError(t, err)
	require.Len(t, cfg.App.Merchants, 1)
	assert.Equal(t, "corner-cafe", cfg.App.Merchants[0].Slug)
	assert.True(t, cfg.App.Merchants[0].Active)
}
