package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cluster  ClusterConfig  `mapstructure:"cluster"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	TLSCert string `mapstructure:"tls_cert"` // PEM certificate path; TLS is enabled when both are set
	TLSKey  string `mapstructure:"tls_key"`
}

// ClusterConfig defines how to reach the cluster manager's control socket
type ClusterConfig struct {
	Address            string `mapstructure:"address"`              // host:port of the control socket
	DialTimeoutSeconds int    `mapstructure:"dial_timeout_seconds"` // per-connect timeout
	ReconnectSeconds   int    `mapstructure:"reconnect_seconds"`    // max backoff between reconnect attempts
}

type DatabaseConfig struct {
	Type                   string `mapstructure:"type"` // "sqlite", "postgres" or "sqlserver"
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `mapstructure:"conn_max_lifetime_seconds"`
}

// AuthConfig defines the default API key enforcement state. The effective
// state is persisted in the database and may be toggled at runtime.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Environment variable support, e.g. cluster.address -> REEFD_CLUSTER_ADDRESS
	viper.SetEnvPrefix("REEFD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; defaults plus environment are enough to run
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8002)
	viper.SetDefault("cluster.address", "127.0.0.1:6830")
	viper.SetDefault("cluster.dial_timeout_seconds", 10)
	viper.SetDefault("cluster.reconnect_seconds", 30)
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "./data/reefd.db")
	viper.SetDefault("auth.enabled", true)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "./logs/reefd.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
}
