// README: Config loader; optional config.yaml with CARGOFLOW_* env overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	Storage struct {
		// Backend selects the booking/fleet store: "memory" (default,
		// authoritative single-process mode) or "postgres".
		Backend string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		// Addr empty disables the route cache and the driver geo index.
		Addr string
	}
	AMQP struct {
		// URL empty disables the broker event mirror.
		URL      string
		Exchange string
	}
	Maps struct {
		APIKey  string
		Timeout time.Duration
	}
	JWT struct {
		Secret string
		TTL    time.Duration
	}
	Tracking struct {
		PollInterval time.Duration
	}
	Dispatch struct {
		RouteCacheTTL time.Duration
		RouteRetries  int
	}
	Log struct {
		Level string
	}
}

// Load reads config.yaml from the working directory (if present) and
// applies CARGOFLOW_* environment overrides, e.g. CARGOFLOW_HTTP_ADDR.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARGOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "cargoflow.events")
	v.SetDefault("maps.apikey", "")
	v.SetDefault("maps.timeout", "8s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "1h")
	v.SetDefault("tracking.pollinterval", "5s")
	v.SetDefault("dispatch.routecachettl", "10m")
	v.SetDefault("dispatch.routeretries", 2)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			problems = append(problems, "db.dsn is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.backend %q", c.Storage.Backend))
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Tracking.PollInterval <= 0 {
		problems = append(problems, "tracking.pollinterval must be positive")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
