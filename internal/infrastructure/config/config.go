package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Processing   ProcessingConfig
	Retry        RetryConfig
	Ledger       LedgerConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings.
// Driver selects between postgres and sqlite; sqlite uses Path only.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite database file
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SeedDemoData    bool
}

// RedisConfig holds Redis connection settings for the ledger snapshot cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// ProcessingConfig holds the workflow decision inputs.
// ApprovalThreshold and AmountTolerance have no built-in defaults: both are
// business decisions that must come from configuration.
type ProcessingConfig struct {
	ApprovalThreshold decimal.Decimal
	AmountTolerance   decimal.Decimal
	DefaultActor      string
}

// RetryConfig bounds retries of transient ledger failures
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxElapsed  time.Duration
	Jitter      float64
}

// LedgerConfig selects and tunes the ledger gateway
type LedgerConfig struct {
	Mode         string // demo is the only shipped mode
	FixturePath  string
	FailEvery    int           // demo: fail every Nth call with a transient error (0 = never)
	Latency      time.Duration // demo: simulated call latency
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NotificationConfig holds outbound notification settings
type NotificationConfig struct {
	Enabled       bool
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	FromAddress   string
	ApproverEmail string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POPROC_ prefix (e.g., POPROC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	threshold, tolerance, err := loadProcessingAmounts(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: databaseFromViper(v),
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Processing: ProcessingConfig{
			ApprovalThreshold: threshold,
			AmountTolerance:   tolerance,
			DefaultActor:      v.GetString("processing.default_actor"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseDelay:   v.GetDuration("retry.base_delay"),
			MaxDelay:    v.GetDuration("retry.max_delay"),
			MaxElapsed:  v.GetDuration("retry.max_elapsed"),
			Jitter:      v.GetFloat64("retry.jitter"),
		},
		Ledger: LedgerConfig{
			Mode:         v.GetString("ledger.mode"),
			FixturePath:  v.GetString("ledger.fixture_path"),
			FailEvery:    v.GetInt("ledger.fail_every"),
			Latency:      v.GetDuration("ledger.latency"),
			CacheEnabled: v.GetBool("ledger.cache_enabled"),
			CacheTTL:     v.GetDuration("ledger.cache_ttl"),
		},
		Notification: NotificationConfig{
			Enabled:       v.GetBool("notification.enabled"),
			SMTPHost:      v.GetString("notification.smtp_host"),
			SMTPPort:      v.GetInt("notification.smtp_port"),
			SMTPUser:      v.GetString("notification.smtp_user"),
			SMTPPassword:  v.GetString("notification.smtp_password"),
			FromAddress:   v.GetString("notification.from_address"),
			ApproverEmail: v.GetString("notification.approver_email"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase loads only the database section of the configuration. The
// migration CLI uses it so that running migrations does not require the
// processing amounts to be set.
func LoadDatabase() (*DatabaseConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Database: databaseFromViper(v)}
	applyDefaults(cfg)

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	return &cfg.Database, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("POPROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

func databaseFromViper(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Driver:          v.GetString("database.driver"),
		Host:            v.GetString("database.host"),
		Port:            v.GetInt("database.port"),
		User:            v.GetString("database.user"),
		Password:        v.GetString("database.password"),
		DBName:          v.GetString("database.dbname"),
		SSLMode:         v.GetString("database.sslmode"),
		Path:            v.GetString("database.path"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		SeedDemoData:    v.GetBool("database.seed_demo_data"),
	}
}

// loadProcessingAmounts parses the two mandatory decimal inputs.
// Both must be present and parseable; there is no business default to fall
// back on for money amounts.
func loadProcessingAmounts(v *viper.Viper) (threshold, tolerance decimal.Decimal, err error) {
	rawThreshold := v.GetString("processing.approval_threshold")
	if rawThreshold == "" {
		return threshold, tolerance, fmt.Errorf("processing.approval_threshold is required")
	}
	threshold, err = decimal.NewFromString(rawThreshold)
	if err != nil {
		return threshold, tolerance, fmt.Errorf("processing.approval_threshold is not a valid amount: %w", err)
	}

	rawTolerance := v.GetString("processing.amount_tolerance")
	if rawTolerance == "" {
		return threshold, tolerance, fmt.Errorf("processing.amount_tolerance is required")
	}
	tolerance, err = decimal.NewFromString(rawTolerance)
	if err != nil {
		return threshold, tolerance, fmt.Errorf("processing.amount_tolerance is not a valid amount: %w", err)
	}
	return threshold, tolerance, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "po-processor"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "po_processor"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "po_processor.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Processing.DefaultActor == "" {
		cfg.Processing.DefaultActor = "system"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 5
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 30 * time.Second
	}
	if cfg.Retry.MaxElapsed == 0 {
		cfg.Retry.MaxElapsed = 2 * time.Minute
	}
	if cfg.Ledger.Mode == "" {
		cfg.Ledger.Mode = "demo"
	}
	if cfg.Ledger.FixturePath == "" {
		cfg.Ledger.FixturePath = "testdata/ledger_fixture.json"
	}
	if cfg.Ledger.CacheTTL == 0 {
		cfg.Ledger.CacheTTL = 5 * time.Minute
	}
	if cfg.Notification.SMTPPort == 0 {
		cfg.Notification.SMTPPort = 25
	}
	if cfg.Notification.FromAddress == "" {
		cfg.Notification.FromAddress = "no-reply@po-processor.local"
	}
	if cfg.Notification.ApproverEmail == "" {
		cfg.Notification.ApproverEmail = "approvals@po-processor.local"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "po-processor"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Processing.ApprovalThreshold.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("processing.approval_threshold must be positive")
	}
	if c.Processing.AmountTolerance.IsNegative() {
		return fmt.Errorf("processing.amount_tolerance cannot be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0.0 and 1.0, got %f", c.Retry.Jitter)
	}
	if c.Ledger.Mode != "demo" {
		return fmt.Errorf("ledger.mode %q is not supported", c.Ledger.Mode)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
