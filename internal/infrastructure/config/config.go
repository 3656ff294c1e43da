package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Remote store drivers
const (
	RemoteDriverNone     = "none"
	RemoteDriverPostgres = "postgres"
	RemoteDriverMongo    = "mongo"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Local        LocalConfig
	Remote       RemoteConfig
	Redis        RedisConfig
	Log          LogConfig
	Billing      BillingConfig
	Sync         SyncConfig
	Connectivity ConnectivityConfig
	HTTP         HTTPConfig
	Idempotency  IdempotencyConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LocalConfig holds the on-device store settings
type LocalConfig struct {
	DBPath  string // sqlite file, ":memory:" for ephemeral runs
	OwnerID uuid.UUID
}

// RemoteConfig selects and configures the remote store of record
type RemoteConfig struct {
	Driver   string // none, postgres, mongo
	Database DatabaseConfig
	Mongo    MongoConfig
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool // apply the embedded schema on startup
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// BillingConfig holds deferred billing and credits API settings
type BillingConfig struct {
	CostPerDocument decimal.Decimal
	MaxOfflineDocs  int
	CreditsBaseURL  string
	CreditsToken    string
	CreditsTimeout  time.Duration
	// Circuit breaker around the credits API
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
}

// SyncConfig holds reconciliation settings
type SyncConfig struct {
	Enabled      bool
	Interval     time.Duration
	CycleTimeout time.Duration
}

// ConnectivityConfig holds the online/offline probe settings
type ConnectivityConfig struct {
	ProbeURL      string // empty disables probing; state then comes from the API
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	StartOnline   bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// Per-owner limit on draft-from-image extraction requests
	ScanRateLimit  int
	ScanRateWindow time.Duration
	// Serve the OpenAPI UI at /swagger
	SwaggerEnabled bool
}

// IdempotencyConfig holds command idempotency settings
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	ServiceName       string
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. localhost:4317
	Insecure          bool    // plaintext gRPC to the collector
	SamplingRatio     float64 // 0.0 to 1.0
	MetricsInterval   time.Duration
	LogsEnabled       bool // bridge zap records to the OTLP logs exporter
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling (Pyroscope), independent of Enabled
	ProfilingEnabled  bool
	ProfilerAddress   string // e.g. http://localhost:4040
	ProfileContention bool   // add mutex and block profiles
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FM_ prefix (e.g., FM_REMOTE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRemote loads configuration for tools that only talk to the remote
// store, such as the migration CLI. The device owner is not required.
func LoadRemote() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateRemote(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sync.enabled", true)
	v.SetDefault("connectivity.start_online", true)
	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.profiler_address", "http://localhost:4040")
	v.SetDefault("http.swagger_enabled", true)
	v.SetDefault("remote.database.auto_migrate", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Local: LocalConfig{
			DBPath: v.GetString("local.db_path"),
		},
		Remote: RemoteConfig{
			Driver: strings.ToLower(v.GetString("remote.driver")),
			Database: DatabaseConfig{
				Host:            v.GetString("remote.database.host"),
				Port:            v.GetInt("remote.database.port"),
				User:            v.GetString("remote.database.user"),
				Password:        v.GetString("remote.database.password"),
				DBName:          v.GetString("remote.database.dbname"),
				SSLMode:         v.GetString("remote.database.sslmode"),
				MaxOpenConns:    v.GetInt("remote.database.max_open_conns"),
				MaxIdleConns:    v.GetInt("remote.database.max_idle_conns"),
				ConnMaxLifetime: v.GetInt("remote.database.conn_max_lifetime"),
				ConnMaxIdleTime: v.GetInt("remote.database.conn_max_idle_time"),
				AutoMigrate:     v.GetBool("remote.database.auto_migrate"),
			},
			Mongo: MongoConfig{
				URI:            v.GetString("remote.mongo.uri"),
				Database:       v.GetString("remote.mongo.database"),
				ConnectTimeout: v.GetDuration("remote.mongo.connect_timeout"),
			},
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
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
		Billing: BillingConfig{
			MaxOfflineDocs:          v.GetInt("billing.max_offline_docs"),
			CreditsBaseURL:          v.GetString("billing.credits_base_url"),
			CreditsToken:            v.GetString("billing.credits_token"),
			CreditsTimeout:          v.GetDuration("billing.credits_timeout"),
			BreakerMaxRequests:      v.GetUint32("billing.breaker_max_requests"),
			BreakerInterval:         v.GetDuration("billing.breaker_interval"),
			BreakerTimeout:          v.GetDuration("billing.breaker_timeout"),
			BreakerFailureThreshold: v.GetUint32("billing.breaker_failure_threshold"),
		},
		Sync: SyncConfig{
			Enabled:      v.GetBool("sync.enabled"),
			Interval:     v.GetDuration("sync.interval"),
			CycleTimeout: v.GetDuration("sync.cycle_timeout"),
		},
		Connectivity: ConnectivityConfig{
			ProbeURL:      v.GetString("connectivity.probe_url"),
			ProbeInterval: v.GetDuration("connectivity.probe_interval"),
			ProbeTimeout:  v.GetDuration("connectivity.probe_timeout"),
			StartOnline:   v.GetBool("connectivity.start_online"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			ScanRateLimit:    v.GetInt("http.scan_rate_limit"),
			ScanRateWindow:   v.GetDuration("http.scan_rate_window"),
			SwaggerEnabled:   v.GetBool("http.swagger_enabled"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			ServiceName:       v.GetString("telemetry.service_name"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
			ProfileContention: v.GetBool("telemetry.profile_contention"),
		},
	}

	if raw := v.GetString("local.owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("local.owner_id is not a valid uuid: %w", err)
		}
		cfg.Local.OwnerID = id
	}
	if raw := v.GetString("billing.cost_per_doc"); raw != "" {
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("billing.cost_per_doc is not a number: %w", err)
		}
		cfg.Billing.CostPerDocument = cost
	} else {
		cfg.Billing.CostPerDocument = decimal.NewFromInt(1)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "factureman"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Local.DBPath == "" {
		cfg.Local.DBPath = "factureman.db"
	}
	if cfg.Remote.Driver == "" {
		cfg.Remote.Driver = RemoteDriverNone
	}
	if cfg.Remote.Database.Host == "" {
		cfg.Remote.Database.Host = "localhost"
	}
	if cfg.Remote.Database.Port == 0 {
		cfg.Remote.Database.Port = 5432
	}
	if cfg.Remote.Database.User == "" {
		cfg.Remote.Database.User = "postgres"
	}
	if cfg.Remote.Database.DBName == "" {
		cfg.Remote.Database.DBName = "factureman"
	}
	if cfg.Remote.Database.SSLMode == "" {
		cfg.Remote.Database.SSLMode = "disable"
	}
	if cfg.Remote.Database.MaxOpenConns == 0 {
		cfg.Remote.Database.MaxOpenConns = 10
	}
	if cfg.Remote.Database.MaxIdleConns == 0 {
		cfg.Remote.Database.MaxIdleConns = 2
	}
	if cfg.Remote.Database.ConnMaxLifetime == 0 {
		cfg.Remote.Database.ConnMaxLifetime = 60
	}
	if cfg.Remote.Database.ConnMaxIdleTime == 0 {
		cfg.Remote.Database.ConnMaxIdleTime = 30
	}
	if cfg.Remote.Mongo.URI == "" {
		cfg.Remote.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Remote.Mongo.Database == "" {
		cfg.Remote.Mongo.Database = "factureman"
	}
	if cfg.Remote.Mongo.ConnectTimeout == 0 {
		cfg.Remote.Mongo.ConnectTimeout = 10 * time.Second
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
	if cfg.Billing.MaxOfflineDocs == 0 {
		cfg.Billing.MaxOfflineDocs = 30
	}
	if cfg.Billing.CreditsTimeout == 0 {
		cfg.Billing.CreditsTimeout = 10 * time.Second
	}
	if cfg.Billing.BreakerMaxRequests == 0 {
		cfg.Billing.BreakerMaxRequests = 1
	}
	if cfg.Billing.BreakerInterval == 0 {
		cfg.Billing.BreakerInterval = time.Minute
	}
	if cfg.Billing.BreakerTimeout == 0 {
		cfg.Billing.BreakerTimeout = 30 * time.Second
	}
	if cfg.Billing.BreakerFailureThreshold == 0 {
		cfg.Billing.BreakerFailureThreshold = 3
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 2 * time.Minute
	}
	if cfg.Sync.CycleTimeout == 0 {
		cfg.Sync.CycleTimeout = time.Minute
	}
	if cfg.Connectivity.ProbeInterval == 0 {
		cfg.Connectivity.ProbeInterval = 15 * time.Second
	}
	if cfg.Connectivity.ProbeTimeout == 0 {
		cfg.Connectivity.ProbeTimeout = 5 * time.Second
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
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB, photos for item extraction
	}
	if cfg.HTTP.ScanRateLimit == 0 {
		cfg.HTTP.ScanRateLimit = 20
	}
	if cfg.HTTP.ScanRateWindow == 0 {
		cfg.HTTP.ScanRateWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "factureman"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Local.OwnerID == uuid.Nil {
		return fmt.Errorf("local.owner_id is required")
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if c.Billing.MaxOfflineDocs <= 0 {
		return fmt.Errorf("billing.max_offline_docs must be positive")
	}
	if c.Billing.CostPerDocument.IsNegative() {
		return fmt.Errorf("billing.cost_per_doc cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must be positive")
	}

	if c.App.Env == "production" {
		if c.Billing.CreditsBaseURL == "" {
			return fmt.Errorf("billing.credits_base_url is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	return nil
}

// validateRemote checks the remote store settings
func (c *Config) validateRemote() error {
	switch c.Remote.Driver {
	case RemoteDriverNone, RemoteDriverPostgres, RemoteDriverMongo:
	default:
		return fmt.Errorf("remote.driver must be one of none, postgres, mongo, got %q", c.Remote.Driver)
	}
	if c.Remote.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("remote.database.max_open_conns must be positive")
	}
	if c.Remote.Database.MaxIdleConns < 0 {
		return fmt.Errorf("remote.database.max_idle_conns cannot be negative")
	}
	if c.Remote.Database.MaxIdleConns > c.Remote.Database.MaxOpenConns {
		return fmt.Errorf("remote.database.max_idle_conns (%d) cannot exceed remote.database.max_open_conns (%d)",
			c.Remote.Database.MaxIdleConns, c.Remote.Database.MaxOpenConns)
	}
	if c.App.Env == "production" && c.Remote.Driver == RemoteDriverPostgres {
		if c.Remote.Database.Password == "" {
			return fmt.Errorf("remote.database.password is required in production")
		}
		if c.Remote.Database.SSLMode == "disable" {
			return fmt.Errorf("remote.database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
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

// RedisAddr returns host:port for the Redis client
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
