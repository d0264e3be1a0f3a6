package config

import "time"

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Autoscaler   AutoscalerConfig   `mapstructure:"autoscaler"`
	GitHub       GitHubConfig       `mapstructure:"github"`
	DigitalOcean DigitalOceanConfig `mapstructure:"digitalocean"`
	Collector    CollectorConfig    `mapstructure:"collector"`
	API          APIConfig          `mapstructure:"api"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Events       EventsConfig       `mapstructure:"events"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

// AutoscalerConfig holds the scaling bounds and anti-thrash parameters.
// All values are immutable for the process lifetime.
type AutoscalerConfig struct {
	MinInstances       int           `mapstructure:"min_instances"`
	MaxInstances       int           `mapstructure:"max_instances"`
	RunnersPerInstance int           `mapstructure:"runners_per_instance"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	ScaleUpCooldown    time.Duration `mapstructure:"scale_up_cooldown"`
	ScaleDownCooldown  time.Duration `mapstructure:"scale_down_cooldown"`
	ScaleUpStep        int           `mapstructure:"scale_up_step"`
	ScaleUpProportion  float64       `mapstructure:"scale_up_proportion"`
	Policy             PolicyConfig  `mapstructure:"policy"`
}

// PolicyConfig selects the breach scoring policy. "instant" acts on the
// first qualifying cycle; "decay" accumulates time-decayed breach scores
// before acting.
type PolicyConfig struct {
	Type            string        `mapstructure:"type"`
	HalfLife        time.Duration `mapstructure:"half_life"`
	BreachThreshold float64       `mapstructure:"breach_threshold"`
	Window          time.Duration `mapstructure:"window"`
}

type GitHubConfig struct {
	Token            string `mapstructure:"token"`
	Org              string `mapstructure:"org"`
	Owner            string `mapstructure:"owner"`
	Repo             string `mapstructure:"repo"`
	RunnerLabel      string `mapstructure:"runner_label"`
	RunnerNamePrefix string `mapstructure:"runner_name_prefix"`
	BaseURL          string `mapstructure:"base_url"`
}

type DigitalOceanConfig struct {
	Token      string `mapstructure:"token"`
	AppID      string `mapstructure:"app_id"`
	WorkerName string `mapstructure:"worker_name"`
	BaseURL    string `mapstructure:"base_url"`
}

type CollectorConfig struct {
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	AdminToken   string        `mapstructure:"admin_token"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
