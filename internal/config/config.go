package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Locker     LockerConfig    `mapstructure:"locker"`
	Serial     SerialConfig    `mapstructure:"serial"`
	Mailbox    MailboxConfig   `mapstructure:"mailbox"`
	Audit      AuditConfig     `mapstructure:"audit"`
	Archiver   ArchiverConfig  `mapstructure:"archiver"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr         string   `mapstructure:"addr"`
	AdminAPIKeys []string `mapstructure:"admin_api_keys"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type DaemonConfig struct {
	Name    string        `mapstructure:"name"`
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type LockerConfig struct {
	Daemons         []DaemonConfig `mapstructure:"daemons"`
	CreateTimeoutMs int            `mapstructure:"create_timeout_ms"`
	PollTimeoutMs   int            `mapstructure:"poll_timeout_ms"`
	PollIntervalMs  int            `mapstructure:"poll_interval_ms"`
	MaxPollAttempts int            `mapstructure:"max_poll_attempts"`
	FallbackKey     string         `mapstructure:"fallback_key"`
}

type SerialConfig struct {
	Backend  string `mapstructure:"backend"` // redis | mysql | static
	RedisKey string `mapstructure:"redis_key"`
	Floor    uint64 `mapstructure:"floor"`
	Static   uint64 `mapstructure:"static"`
}

type MailboxConfig struct {
	DefaultDescription string `mapstructure:"default_description"`
	DefaultInboxFee    string `mapstructure:"default_inbox_fee"`
}

type AuditConfig struct {
	FilePath string `mapstructure:"file_path"` // empty disables the file sink
	Kafka    bool   `mapstructure:"kafka"`
}

type ArchiverConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (QMAIL_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (QMAIL_*), nested keys use underscores: QMAIL_LOCKER_FALLBACK_KEY
	v.SetEnvPrefix("QMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
