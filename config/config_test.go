package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"server": {"port": "9000"},
		"database": {"host": "db", "user": "app", "dbname": "publicspace"},
		"jwt": {"secret": "s3cret"},
		"requests": {"strict_transitions": false}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 3*time.Hour, cfg.JWT.Expiration())
	assert.False(t, cfg.Requests.Strict())
	assert.Equal(t, time.Second, cfg.Outbox.Interval())
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "8081"
  cors_origins:
    - http://example.com
database:
  host: pg
jwt:
  secret: abc
  expiration_hours: 1
rabbitmq:
  enabled: true
  host: mq
  port: "5672"
  user: guest
  password: guest
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, []string{"http://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration())
	assert.True(t, cfg.Requests.Strict())
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.AMQPURL())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"database": {"host": "db"}, "jwt": {"secret": "file"}}`)

	t.Setenv("APP_PORT", "7000")
	t.Setenv("DB_HOST", "other-db")
	t.Setenv("JWT_SECRET", "env")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@broker:5672/")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "other-db", cfg.Database.Host)
	assert.Equal(t, "env", cfg.JWT.Secret)
	assert.Equal(t, "amqp://u:p@broker:5672/", cfg.RabbitMQ.AMQPURL())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "config.toml", `port = 1`))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = LoadConfig(writeFile(t, "config.json", `{not json`))
	assert.ErrorContains(t, err, "decode config")
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "jwt.secret")
	assert.ErrorContains(t, err, "database.host")

	cfg = &Config{
		Database: DatabaseConfig{Host: "db"},
		JWT:      JWTConfig{Secret: "x"},
		RabbitMQ: RabbitMQConfig{Enabled: true},
	}
	assert.ErrorContains(t, cfg.Validate(), "rabbitmq")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", d.DSN())
}
