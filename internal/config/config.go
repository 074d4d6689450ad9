package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server      Server      `mapstructure:"server"`
	Capture     Capture     `mapstructure:"capture"`
	Browser     Browser     `mapstructure:"browser"`
	Placeholder Placeholder `mapstructure:"placeholder"`
	Database    Database    `mapstructure:"database"`
	Storage     Storage     `mapstructure:"storage"`
	Kafka       Kafka       `mapstructure:"kafka"`
	Retry       Retry       `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort      string        `mapstructure:"http_port"`       // HTTP port to listen on
	SuccessMaxAge time.Duration `mapstructure:"success_max_age"` // Cache-Control max-age for screenshots
	FailureMaxAge time.Duration `mapstructure:"failure_max_age"` // Cache-Control max-age for placeholders
}

// Capture holds defaults applied to every screenshot request.
type Capture struct {
	Format           string        `mapstructure:"format"`            // jpeg, png or webp
	DisableScripting bool          `mapstructure:"disable_scripting"` // static render without JavaScript
	StopGrace        time.Duration `mapstructure:"stop_grace"`        // pause after a watchdog stop
}

// Browser holds headless Chrome settings.
type Browser struct {
	ExecPath  string   `mapstructure:"exec_path"`
	NoSandbox bool     `mapstructure:"no_sandbox"`
	Flags     []string `mapstructure:"flags"`
}

// Placeholder holds failure placeholder settings.
type Placeholder struct {
	Raster bool `mapstructure:"raster"` // PNG placeholders instead of SVG
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the screenshot cache.
type Storage struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKey       string        `mapstructure:"access_key"`
	SecretKey       string        `mapstructure:"secret_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Prefix          string        `mapstructure:"prefix"`           // Subdirectory for cached screenshots
	TTL             time.Duration `mapstructure:"ttl"`              // Age after which cached screenshots expire
	JanitorSchedule string        `mapstructure:"janitor_schedule"` // Cron spec for expiring screenshots
}

// Kafka holds configuration for the capture event stream.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`  // Publish capture events
	Consume bool     `mapstructure:"consume"`  // Store capture events in the database
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("server.success_max_age", 24*time.Hour)
	v.SetDefault("server.failure_max_age", time.Hour)

	v.SetDefault("capture.format", "jpeg")
	v.SetDefault("capture.stop_grace", 100*time.Millisecond)

	v.SetDefault("storage.bucket_name", "screenshots")
	v.SetDefault("storage.prefix", "screenshots")
	v.SetDefault("storage.ttl", 7*24*time.Hour)
	v.SetDefault("storage.janitor_schedule", "@every 1h")

	v.SetDefault("kafka.topic", "capture-events")
	v.SetDefault("kafka.group_id", "capture-events-audit")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 100*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// bindEnv binds secrets and endpoints to environment variables.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"storage.endpoint":     "MINIO_ENDPOINT",
		"storage.access_key":   "MINIO_ACCESS_KEY",
		"storage.secret_key":   "MINIO_SECRET_KEY",
		"browser.exec_path":    "CHROME_PATH",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load reads the YAML configuration at path, applying defaults and
// environment overrides (SCREENSHOT_SERVER_HTTP_PORT and the like).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("screenshot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
