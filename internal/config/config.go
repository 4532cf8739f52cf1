package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "PCRS"

	// DefaultSessionSecret is only acceptable outside production.
	DefaultSessionSecret = "dev-session-secret"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Backend   BackendSettings   `mapstructure:"backend"`
	Session   SessionSettings   `mapstructure:"session"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Env          string `mapstructure:"env"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	TemplateDir  string `mapstructure:"template_dir"`
	StaticDir    string `mapstructure:"static_dir"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// Addr is the listen address.
func (a AppSettings) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// BackendSettings locates the rental REST backend.
type BackendSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionSettings selects and configures the session store.
type SessionSettings struct {
	Store    string        `mapstructure:"store"`
	DBPath   string        `mapstructure:"db_path"`
	Duration time.Duration `mapstructure:"duration"`
	Secret   string        `mapstructure:"secret"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// short env names kept for existing deployments
var aliases = map[string][]string{
	"app.port":         {"PORT"},
	"session.db_path":  {"DB_PATH"},
	"backend.base_url": {"BACKEND_URL"},
}

var keys = []string{
	"app.env",
	"app.host",
	"app.port",
	"app.template_dir",
	"app.static_dir",
	"app.secure_cookie",
	"backend.base_url",
	"backend.timeout",
	"session.store",
	"session.db_path",
	"session.duration",
	"session.secret",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.prefix",
	"telemetry.otlp_endpoint",
	"telemetry.service_name",
	"telemetry.sampling_rate",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, keys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	switch c.Session.Store {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.store must be sqlite or redis, got %q", c.Session.Store))
	}
	if c.Session.Duration <= 0 {
		errs = append(errs, errors.New("session.duration must be positive"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret is required"))
	} else if c.App.Env == "production" && c.Session.Secret == DefaultSessionSecret {
		errs = append(errs, errors.New("session.secret must be changed in production"))
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		errs = append(errs, errors.New("telemetry.sampling_rate must be within [0, 1]"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.template_dir", "web/templates")
	v.SetDefault("app.static_dir", "web/static")
	v.SetDefault("app.secure_cookie", false)

	v.SetDefault("backend.base_url", "http://localhost:9090")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("session.store", "sqlite")
	v.SetDefault("session.db_path", "sessions.db")
	v.SetDefault("session.duration", "720h")
	v.SetDefault("session.secret", DefaultSessionSecret)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pcrs:session")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "rental-console")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		names := append([]string{envPrefix + "_" + envKey}, aliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
