// internal/config/config.go
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dispatcher process.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	EtcdEndpoints  []string      `mapstructure:"etcd_endpoints"`
	EtcdTimeout    time.Duration `mapstructure:"etcd_timeout"`
	HttpListenAddr string        `mapstructure:"http_listen_addr"`

	Polling    PollingConfig    `mapstructure:"polling"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
}

// PollingConfig is the polling.* configuration surface controlling the
// fetch-and-partition publisher loop.
type PollingConfig struct {
	IntervalMs      int  `mapstructure:"interval_ms"`
	MaxConcurrency  int  `mapstructure:"max_concurrency"`
	ContinueOnError bool `mapstructure:"continue_on_error"`
	BatchSize       int  `mapstructure:"batch_size"`
}

// Interval returns IntervalMs as a time.Duration.
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// DispatcherConfig is the dispatcher-level configuration surface: the
// global concurrency cap and fatal-error behavior applied once items
// leave the publisher and enter account lanes.
type DispatcherConfig struct {
	MaxConcurrency    int    `mapstructure:"max_concurrency"`
	ContinueOnError   bool   `mapstructure:"continue_on_error"`
	LockTTLSeconds    int    `mapstructure:"lock_ttl_seconds"`
	LockSweepInterval string `mapstructure:"lock_sweep_interval"`
}

// LockTTL returns LockTTLSeconds as a time.Duration.
func (d DispatcherConfig) LockTTL() time.Duration {
	return time.Duration(d.LockTTLSeconds) * time.Second
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	// Set default values.
	viper.SetDefault("etcd_timeout", "5s")
	viper.SetDefault("http_listen_addr", ":8080")

	// polling.* defaults.
	viper.SetDefault("polling.interval_ms", 5000)
	viper.SetDefault("polling.max_concurrency", 10)
	viper.SetDefault("polling.continue_on_error", true)
	viper.SetDefault("polling.batch_size", 50)

	// dispatcher.* defaults.
	viper.SetDefault("dispatcher.max_concurrency", 10)
	viper.SetDefault("dispatcher.continue_on_error", true)
	viper.SetDefault("dispatcher.lock_ttl_seconds", 600)
	viper.SetDefault("dispatcher.lock_sweep_interval", "@every 1m")

	// Set config file details.
	viper.SetConfigName("config")    // name of config file (without extension)
	viper.SetConfigType("yaml")      // or "json", "toml"
	viper.AddConfigPath("./configs") // path to look for the config file in
	viper.AddConfigPath(".")         // optionally look for config in the working directory

	// Read environment variables.
	viper.AutomaticEnv()

	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; rely on defaults and env vars.
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
