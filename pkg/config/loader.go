package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/runner-autoscaler")
	}

	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "runner-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")

	// Autoscaler defaults
	v.SetDefault("autoscaler.min_instances", 1)
	v.SetDefault("autoscaler.max_instances", 5)
	v.SetDefault("autoscaler.runners_per_instance", 1)
	v.SetDefault("autoscaler.poll_interval", "60s")
	v.SetDefault("autoscaler.scale_up_cooldown", "60s")
	v.SetDefault("autoscaler.scale_down_cooldown", "180s")
	v.SetDefault("autoscaler.scale_up_step", 2)
	v.SetDefault("autoscaler.scale_up_proportion", 0.5)
	v.SetDefault("autoscaler.policy.type", "instant")
	v.SetDefault("autoscaler.policy.half_life", "30s")
	v.SetDefault("autoscaler.policy.breach_threshold", 2.0)
	v.SetDefault("autoscaler.policy.window", "3m")

	// GitHub defaults
	v.SetDefault("github.runner_label", "self-hosted")
	v.SetDefault("github.base_url", "https://api.github.com")

	// DigitalOcean defaults
	v.SetDefault("digitalocean.base_url", "https://api.digitalocean.com/v2")
	v.SetDefault("digitalocean.worker_name", "runner")

	// Collector defaults
	v.SetDefault("collector.timeout", "15s")
	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_delay", "1s")
	v.SetDefault("collector.circuit_breaker.max_failures", 5)
	v.SetDefault("collector.circuit_breaker.timeout", "30s")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.jwt_duration", "24h")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoscaler")
	v.SetDefault("database.user", "autoscaler")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
