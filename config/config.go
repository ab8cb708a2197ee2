package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
	JWT      JWTConfig      `json:"jwt" yaml:"jwt"`
	Requests RequestsConfig `json:"requests" yaml:"requests"`
	Outbox   OutboxConfig   `json:"outbox" yaml:"outbox"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Port                string   `json:"port" yaml:"port"`
	ReadTimeoutSeconds  int      `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	CORSOrigins         []string `json:"cors_origins" yaml:"cors_origins"`
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       string `json:"port" yaml:"port"`
	User       string `json:"user" yaml:"user"`
	Password   string `json:"password" yaml:"password"`
	DBName     string `json:"dbname" yaml:"dbname"`
	SSLMode    string `json:"sslmode" yaml:"sslmode"`
	AutoSchema bool   `json:"auto_schema" yaml:"auto_schema"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RabbitMQConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	URL      string `json:"url" yaml:"url"`
	Host     string `json:"host" yaml:"host"`
	Port     string `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
}

// AMQPURL returns URL when set, otherwise builds one from the parts.
func (r RabbitMQConfig) AMQPURL() string {
	if r.URL != "" {
		return r.URL
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   r.Host + ":" + r.Port,
		Path:   "/",
	}
	return u.String()
}

type JWTConfig struct {
	Secret          string `json:"secret" yaml:"secret"`
	ExpirationHours int    `json:"expiration_hours" yaml:"expiration_hours"`
}

func (j JWTConfig) Expiration() time.Duration {
	return time.Duration(j.ExpirationHours) * time.Hour
}

type RequestsConfig struct {
	// StrictTransitions only lets a request's status move forward.
	StrictTransitions *bool `json:"strict_transitions" yaml:"strict_transitions"`
}

func (r RequestsConfig) Strict() bool {
	return r.StrictTransitions == nil || *r.StrictTransitions
}

type OutboxConfig struct {
	IntervalMillis int `json:"interval_ms" yaml:"interval_ms"`
	BatchSize      int `json:"batch_size" yaml:"batch_size"`
}

func (o OutboxConfig) Interval() time.Duration {
	return time.Duration(o.IntervalMillis) * time.Millisecond
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadConfig reads a JSON or YAML file, chosen by extension, then applies
// environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"APP_PORT":     &c.Server.Port,
		"DB_HOST":      &c.Database.Host,
		"DB_PASSWORD":  &c.Database.Password,
		"JWT_SECRET":   &c.JWT.Secret,
		"RABBITMQ_URL": &c.RabbitMQ.URL,
		"LOG_LEVEL":    &c.Log.Level,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 15
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.ExpirationHours == 0 {
		c.JWT.ExpirationHours = 3
	}
	if c.Outbox.IntervalMillis == 0 {
		c.Outbox.IntervalMillis = 1000
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" && c.RabbitMQ.Host == "" {
		errs = append(errs, errors.New("rabbitmq.host or rabbitmq.url is required when rabbitmq is enabled"))
	}
	return errors.Join(errs...)
}
