package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Mongo       MongoConfig       `koanf:"mongo"`
	SalesOrders SalesOrdersConfig `koanf:"sales_orders"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string     `koanf:"host"`
	Port    int        `koanf:"port"`
	Mode    string     `koanf:"mode"`
	Timeout string     `koanf:"timeout"`
	CORS    CORSConfig `koanf:"cors"`

	// TrustRequestID reuses a well-formed X-Request-ID sent by a proxy.
	TrustRequestID bool `koanf:"trust_request_id"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// MongoConfig holds the document store connection descriptor and pool settings.
// Durations are Go duration strings ("5s", "30s").
type MongoConfig struct {
	URI         string            `koanf:"uri"`
	Database    string            `koanf:"database" validate:"required"`
	Collections CollectionsConfig `koanf:"collections"`

	MaxPoolSize            uint64 `koanf:"max_pool_size" validate:"gte=1"`
	MinPoolSize            uint64 `koanf:"min_pool_size" validate:"ltefield=MaxPoolSize"`
	MaxIdleTime            string `koanf:"max_idle_time"`
	WaitQueueTimeout       string `koanf:"wait_queue_timeout"`
	ServerSelectionTimeout string `koanf:"server_selection_timeout"`
	ConnectTimeout         string `koanf:"connect_timeout"`
	SocketTimeout          string `koanf:"socket_timeout"`
	WriteConcern           string `koanf:"write_concern" validate:"omitempty,oneof=majority 0 1 2 3"`
	RetryWrites            bool   `koanf:"retry_writes"`
}

// CollectionsConfig names the four collections the dashboard reads.
type CollectionsConfig struct {
	SalesOrders    string `koanf:"sales_orders" validate:"required"`
	PurchaseOrders string `koanf:"purchase_orders" validate:"required"`
	StockTransfers string `koanf:"stock_transfers" validate:"required"`
	TargetOrders   string `koanf:"target_orders" validate:"required"`
}

// SalesOrdersConfig tunes the sales-order listing.
type SalesOrdersConfig struct {
	// MaxLimit caps the page size. Zero disables the cap.
	MaxLimit int `koanf:"max_limit"`
	// Timezone anchors the date_filter shortcuts ("today", "yesterday", ...).
	Timezone string `koanf:"timezone"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// legacyEnv maps the plain environment variables used by the original
// deployment to their koanf keys.
var legacyEnv = map[string]string{
	"MONGODB_CONNECTION_STRING":       "mongo.uri",
	"MONGODB_DATABASE_NAME":           "mongo.database",
	"MONGODB_COLLECTION_NAME":         "mongo.collections.sales_orders",
	"PURCHASE_ORDERS_COLLECTION_NAME": "mongo.collections.purchase_orders",
	"STOCK_TRANSFERS_COLLECTION_NAME": "mongo.collections.stock_transfers",
	"TARGET_ORDERS_COLLECTION_NAME":   "mongo.collections.target_orders",
	"PORT":                            "server.port",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when neither the file nor the
// environment sets a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Mode: gin.ReleaseMode,
		},
		Mongo: MongoConfig{
			Database: "Order_information",
			Collections: CollectionsConfig{
				SalesOrders:    "Katana_to_dcl",
				PurchaseOrders: "purchase_orders",
				StockTransfers: "Stock_Transfers",
				TargetOrders:   "Target_Orders",
			},
			MaxPoolSize:            10,
			MinPoolSize:            1,
			MaxIdleTime:            "30s",
			WaitQueueTimeout:       "5s",
			ServerSelectionTimeout: "5s",
			ConnectTimeout:         "10s",
			SocketTimeout:          "30s",
			WriteConcern:           "majority",
			RetryWrites:            true,
		},
		SalesOrders: SalesOrdersConfig{
			MaxLimit: 100,
			Timezone: "UTC",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from an optional YAML file and overlays environment
// variables. Environment variables use the prefix "APP__" and double-underscore
// as the hierarchy separator, e.g. APP__MONGO__MAX_POOL_SIZE=20 overrides
// mongo.max_pool_size. The plain variables listed in legacyEnv
// (MONGODB_CONNECTION_STRING, ...) are applied last.
//
// A missing file at configPath is not an error; the defaults and the
// environment are enough to run.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
		}
	}

	// APP__MONGO__COLLECTIONS__SALES_ORDERS -> mongo.collections.sales_orders
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values.
func (c *Config) Validate() error {
	// Validate server.mode.
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	// Validate server.port range.
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	// Normalize optional duration fields: whitespace-only means unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)

	if t := c.Server.Timeout; t != "" {
		if err := positiveDuration("server.timeout", t); err != nil {
			return err
		}
	}

	if ma := c.Server.CORS.MaxAge; ma != "" {
		d, err := time.ParseDuration(ma)
		if err != nil {
			return fmt.Errorf("invalid server.cors.max_age %q: must be a valid duration (e.g. \"24h\", \"3600s\"): %w", c.Server.CORS.MaxAge, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid server.cors.max_age %q: must be greater than 0", c.Server.CORS.MaxAge)
		}
	}

	if err := c.Mongo.validate(); err != nil {
		return err
	}

	// Validate sales_orders.
	if c.SalesOrders.MaxLimit < 0 {
		return fmt.Errorf("invalid sales_orders.max_limit %d: must be 0 (no cap) or positive", c.SalesOrders.MaxLimit)
	}
	tz := strings.TrimSpace(c.SalesOrders.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid sales_orders.timezone %q: %w", c.SalesOrders.Timezone, err)
	}
	c.SalesOrders.Timezone = tz

	// Validate metrics.path.
	if c.Metrics.Enabled {
		p := strings.TrimSpace(c.Metrics.Path)
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
		}
		c.Metrics.Path = p
	}

	// Validate log.level.
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	// Validate log.format.
	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

// Location returns the time zone the date_filter shortcuts are anchored to.
// It falls back to UTC when the configured zone cannot be loaded.
func (c SalesOrdersConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// validate checks the mongo section. An empty URI is allowed: the service
// starts in the disconnected state and reports it on every request.
func (m *MongoConfig) validate() error {
	m.URI = strings.TrimSpace(m.URI)
	m.Database = strings.TrimSpace(m.Database)
	m.WriteConcern = strings.TrimSpace(m.WriteConcern)

	if err := validate.Struct(m); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("invalid mongo.%s: failed %q rule", strings.ToLower(fe.StructField()), fe.Tag())
		}
		return fmt.Errorf("invalid mongo config: %w", err)
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"mongo.max_idle_time", &m.MaxIdleTime},
		{"mongo.wait_queue_timeout", &m.WaitQueueTimeout},
		{"mongo.server_selection_timeout", &m.ServerSelectionTimeout},
		{"mongo.connect_timeout", &m.ConnectTimeout},
		{"mongo.socket_timeout", &m.SocketTimeout},
	}
	for _, f := range durations {
		v := strings.TrimSpace(*f.value)
		*f.value = v
		if v == "" {
			continue
		}
		if err := positiveDuration(f.name, v); err != nil {
			return err
		}
	}

	return nil
}

func positiveDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return nil
}
