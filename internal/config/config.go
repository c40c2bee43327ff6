// FilePath: internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration for the sync jobs and the status server
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Source     SourceConfig     `mapstructure:"source"`
	Beep       BeepConfig       `mapstructure:"beep"`
	Apiaries   []ApiaryConfig   `mapstructure:"apiaries"`
	Hives      []HiveConfig     `mapstructure:"hives"`
	Sensors    []SensorConfig   `mapstructure:"sensors"`
	Lock       LockConfig       `mapstructure:"lock"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Server     ServerConfig     `mapstructure:"server"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

type DatabaseConfig struct {
	URL          string         `mapstructure:"url"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	Timescale    bool           `mapstructure:"timescale"`
	MaxOpenConns int            `mapstructure:"max_open_conns"`
	PingTimeout  time.Duration  `mapstructure:"ping_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string. An explicit URL wins over the
// discrete host settings.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	p := d.Postgres
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// SourceConfig describes the BeehiveMonitoring API.
type SourceConfig struct {
	BaseURL         string            `mapstructure:"base_url"`
	Token           string            `mapstructure:"token"`
	Entity          models.EntityKind `mapstructure:"entity"`
	Attributes      []string          `mapstructure:"attributes"`
	RequestTimeout  time.Duration     `mapstructure:"request_timeout"`
	MaxHistoryLimit int               `mapstructure:"max_history_limit"`
	UserAgent       string            `mapstructure:"user_agent"`
}

// BeepConfig describes the BEEP republishing destination.
type BeepConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Overlap         time.Duration `mapstructure:"overlap"`
	DefaultLookback time.Duration `mapstructure:"default_lookback"`
	WatermarkCache  bool          `mapstructure:"watermark_cache"`
	Mappings        []BeepMapping `mapstructure:"mappings"`
}

// BeepMapping ties a local entity to its BEEP hive and device keys. Either
// key may be empty, in which case that payload kind is not posted.
type BeepMapping struct {
	EntityID int64  `mapstructure:"entity_id"`
	HiveID   string `mapstructure:"hive_id"`
	ScaleKey string `mapstructure:"scale_key"`
	HeartKey string `mapstructure:"heart_key"`
}

type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	Key     string        `mapstructure:"key"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AuthToken       string        `mapstructure:"auth_token"`
}

type MonitoringConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Namespace      string `mapstructure:"namespace"`
}

type ScheduleConfig struct {
	Sync       string `mapstructure:"sync"`
	Republish  string `mapstructure:"republish"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Load initializes configuration from environment variables and an optional
// config file. An empty path searches ./config and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.NewConfigurationError("error reading config file", err)
		}
	}

	// APIARIES may arrive as a JSON document in a single env var.
	var apiariesJSON string
	if s, ok := v.Get("apiaries").(string); ok {
		apiariesJSON = s
		v.Set("apiaries", []any{})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigurationError("error unmarshaling config", err)
	}

	if strings.TrimSpace(apiariesJSON) != "" {
		apiaries, err := ParseApiaries(apiariesJSON)
		if err != nil {
			return nil, err
		}
		cfg.Apiaries = apiaries
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.dbname", "bees")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.timescale", false)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.ping_timeout", "5s")

	// Source defaults
	v.SetDefault("source.base_url", "https://main.beehivemonitoring.com")
	v.SetDefault("source.token", "")
	v.SetDefault("source.entity", string(models.EntityKindHives))
	v.SetDefault("source.attributes", models.Attributes)
	v.SetDefault("source.request_timeout", "30s")
	v.SetDefault("source.max_history_limit", 20000)
	v.SetDefault("source.user_agent", "bees-sync")

	// BEEP defaults
	v.SetDefault("beep.base_url", "https://api.beep.nl")
	v.SetDefault("beep.token", "")
	v.SetDefault("beep.request_timeout", "30s")
	v.SetDefault("beep.overlap", "15m")
	v.SetDefault("beep.default_lookback", "24h")
	v.SetDefault("beep.watermark_cache", false)

	// Lock defaults
	v.SetDefault("lock.backend", "file")
	v.SetDefault("lock.path", filepath.Join(os.TempDir(), "bees.lock"))
	v.SetDefault("lock.key", "bees:lock")
	v.SetDefault("lock.ttl", "30m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.namespace", "bees")

	// Schedule defaults
	v.SetDefault("schedule.sync", "*/15 * * * *")
	v.SetDefault("schedule.republish", "*/30 * * * *")
	v.SetDefault("schedule.run_on_start", true)
}

// bindLegacyEnv accepts the unprefixed variable names used by earlier
// deployments of the sync scripts.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("database.url", "BEES_DATABASE__URL", "DATABASE_URL")
	_ = v.BindEnv("source.token", "BEES_SOURCE__TOKEN", "BEEHIVE_API_TOKEN")
	_ = v.BindEnv("beep.token", "BEES_BEEP__TOKEN", "BEEP_API_TOKEN")
	_ = v.BindEnv("apiaries", "BEES_APIARIES", "APIARIES")
}

// ParseApiaries decodes the JSON form `[{"id":1,"name":"...","hives":[...]}]`.
func ParseApiaries(doc string) ([]ApiaryConfig, error) {
	var apiaries []ApiaryConfig
	if err := json.Unmarshal([]byte(doc), &apiaries); err != nil {
		return nil, errors.NewConfigurationError("invalid APIARIES document", err)
	}
	return apiaries, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Database.DSN() == "" {
		return errors.NewConfigurationError("database connection is required", nil)
	}
	if !cfg.Source.Entity.Valid() {
		return errors.NewConfigurationError(fmt.Sprintf("source.entity must be %q or %q, got %q",
			models.EntityKindHives, models.EntityKindSensors, cfg.Source.Entity), nil)
	}
	if len(cfg.Source.Attributes) == 0 {
		return errors.NewConfigurationError("source.attributes must not be empty", nil)
	}
	for _, a := range cfg.Source.Attributes {
		if !models.IsAttribute(a) {
			return errors.NewConfigurationError(fmt.Sprintf("source.attributes: unknown attribute %q", a), nil)
		}
	}
	if cfg.Source.MaxHistoryLimit < 0 {
		return errors.NewConfigurationError("source.max_history_limit must not be negative", nil)
	}
	switch cfg.Lock.Backend {
	case "file", "redis", "none":
	default:
		return errors.NewConfigurationError(fmt.Sprintf("lock.backend %q is not supported", cfg.Lock.Backend), nil)
	}
	return validateTopology(cfg)
}

// ValidateSync checks the settings the sync command needs beyond Load.
func (c *Config) ValidateSync() error {
	if c.Source.BaseURL == "" {
		return errors.NewConfigurationError("source.base_url is required", nil)
	}
	if c.Source.Token == "" {
		return errors.NewConfigurationError("source token is required (BEEHIVE_API_TOKEN)", nil)
	}
	if len(c.Apiaries) == 0 {
		return errors.NewConfigurationError("no apiaries configured", nil)
	}
	return nil
}

// ValidateBeep checks the settings the republisher needs beyond Load.
func (c *Config) ValidateBeep() error {
	if c.Beep.BaseURL == "" {
		return errors.NewConfigurationError("beep.base_url is required", nil)
	}
	if c.Beep.Token == "" {
		return errors.NewConfigurationError("beep token is required (BEEP_API_TOKEN)", nil)
	}
	if len(c.Beep.Mappings) == 0 {
		return errors.NewConfigurationError("no beep mappings configured", nil)
	}
	for _, m := range c.Beep.Mappings {
		if m.EntityID == 0 {
			return errors.NewConfigurationError("beep mapping without entity_id", nil)
		}
		if m.ScaleKey == "" && m.HeartKey == "" {
			return errors.NewConfigurationError(fmt.Sprintf("beep mapping for entity %d has no device key", m.EntityID), nil)
		}
	}
	return nil
}
