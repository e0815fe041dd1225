package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env                 string `mapstructure:"env"`
	Port                int    `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds"`
	ShutdownSeconds     int    `mapstructure:"shutdown_seconds"`
	Timezone            string `mapstructure:"timezone"`
	CredentialDomain    string `mapstructure:"credential_domain"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTCfg struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
}

type SecurityCfg struct {
	PasswordHashCost    int `mapstructure:"password_hash_cost"`
	MinPasswordLength   int `mapstructure:"min_password_length"`
	LoginMaxAttempts    int `mapstructure:"login_max_attempts"`
	LoginLockoutMinutes int `mapstructure:"login_lockout_minutes"`
	IPRequestsPerMinute int `mapstructure:"ip_requests_per_minute"`
	WSMessagesPerSecond int `mapstructure:"ws_messages_per_second"`
}

type KafkaCfg struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	DLQTopic       string   `mapstructure:"dlq_topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

type AWSCfg struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Cfg struct {
	PublicRead        bool  `mapstructure:"public_read"`
	PresignTTLSeconds int   `mapstructure:"presign_ttl_seconds"`
	MaxUploadBytes    int64 `mapstructure:"max_upload_bytes"`
}

type TwilioCfg struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type BillingCfg struct {
	DueDays int `mapstructure:"due_days"`
}

type BootstrapCfg struct {
	SeedFile string `mapstructure:"seed_file"`
}

type Config struct {
	App       AppCfg       `mapstructure:"app"`
	Mongo     MongoCfg     `mapstructure:"mongo"`
	Redis     RedisCfg     `mapstructure:"redis"`
	JWT       JWTCfg       `mapstructure:"jwt"`
	Security  SecurityCfg  `mapstructure:"security"`
	Kafka     KafkaCfg     `mapstructure:"kafka"`
	AWS       AWSCfg       `mapstructure:"aws"`
	S3        S3Cfg        `mapstructure:"s3"`
	Twilio    TwilioCfg    `mapstructure:"twilio"`
	Billing   BillingCfg   `mapstructure:"billing"`
	Bootstrap BootstrapCfg `mapstructure:"bootstrap"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	LoginLockout    time.Duration
	PresignTTL      time.Duration
	Location        *time.Location
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout_seconds", 15)
	v.SetDefault("app.write_timeout_seconds", 15)
	v.SetDefault("app.idle_timeout_seconds", 60)
	v.SetDefault("app.shutdown_seconds", 10)
	v.SetDefault("app.timezone", "Asia/Kolkata")
	v.SetDefault("app.credential_domain", "moms.app")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "moms")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "moms")
	v.SetDefault("jwt.access_ttl_minutes", 15)
	v.SetDefault("jwt.refresh_ttl_days", 30)
	v.SetDefault("security.password_hash_cost", 10)
	v.SetDefault("security.min_password_length", 6)
	v.SetDefault("security.login_max_attempts", 5)
	v.SetDefault("security.login_lockout_minutes", 15)
	v.SetDefault("security.ip_requests_per_minute", 60)
	v.SetDefault("security.ws_messages_per_second", 5)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "moms.events")
	v.SetDefault("kafka.group_id", "moms-notifier")
	v.SetDefault("kafka.dlq_topic", "moms.events.dlq")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff_ms", 500)
	v.SetDefault("aws.region", "ap-south-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("s3.public_read", false)
	v.SetDefault("s3.presign_ttl_seconds", 600)
	v.SetDefault("s3.max_upload_bytes", 5*1024*1024)
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from", "")
	v.SetDefault("billing.due_days", 7)
	v.SetDefault("bootstrap.seed_file", "")
}

// Load reads the YAML file at path. Every key can be overridden from the
// environment as MOMS_<SECTION>_<KEY>, e.g. MOMS_MONGO_URI.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MOMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.derive(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() error {
	c.ReadTimeout = time.Duration(c.App.ReadTimeoutSeconds) * time.Second
	c.WriteTimeout = time.Duration(c.App.WriteTimeoutSeconds) * time.Second
	c.IdleTimeout = time.Duration(c.App.IdleTimeoutSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSeconds) * time.Second
	c.AccessTTL = time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
	c.RefreshTTL = time.Duration(c.JWT.RefreshTTLDays) * 24 * time.Hour
	c.LoginLockout = time.Duration(c.Security.LoginLockoutMinutes) * time.Minute
	c.PresignTTL = time.Duration(c.S3.PresignTTLSeconds) * time.Second

	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	c.Location = loc
	return nil
}

func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required (MOMS_MONGO_URI)")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required (MOMS_JWT_SECRET)")
	}
	if c.Security.MinPasswordLength < 6 {
		return errors.New("security.min_password_length must be at least 6")
	}
	if c.Security.LoginMaxAttempts <= 0 {
		return errors.New("security.login_max_attempts must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled but no brokers configured")
	}
	return nil
}
