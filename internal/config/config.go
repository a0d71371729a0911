package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	TransportLiveKit = "livekit"
	TransportLocal   = "local"
)

type Backend struct {
	URL       string            `mapstructure:"url"`
	APIKey    string            `mapstructure:"api_key"`
	APISecret string            `mapstructure:"api_secret"`
	Regions   map[string]string `mapstructure:"regions"`
}

type LiveKit struct {
	Primary   Backend `mapstructure:"primary"`
	Secondary Backend `mapstructure:"secondary"`
}

type Routing struct {
	PrimaryLanguage string `mapstructure:"primary_language"`
}

type Database struct {
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Signal struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	ReapEvery  time.Duration `mapstructure:"reap_every"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	Secret     string        `mapstructure:"secret"`
	Transport  string        `mapstructure:"transport"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	SkewHold   time.Duration `mapstructure:"skew_hold"`
	RoomExpiry time.Duration `mapstructure:"room_expiry"`
	RequestTTL time.Duration `mapstructure:"request_ttl"`
	LiveKit    LiveKit       `mapstructure:"livekit"`
	Routing    Routing       `mapstructure:"routing"`
	Database   Database      `mapstructure:"database"`
	Redis      Redis         `mapstructure:"redis"`
	Signal     Signal        `mapstructure:"signal"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("transport", cfg.Transport).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("transport", TransportLiveKit)
	v.SetDefault("token_ttl", "6h")
	v.SetDefault("skew_hold", "50ms")
	v.SetDefault("room_expiry", "168h")
	v.SetDefault("request_ttl", "2h")
	v.SetDefault("routing.primary_language", "ar")
	v.SetDefault("database.migrate", true)
	v.SetDefault("signal.read_limit", 32768)
	v.SetDefault("signal.ping_period", "54s")
	v.SetDefault("signal.rate_limit", 50)
	v.SetDefault("signal.rate_window", "1s")
	v.SetDefault("signal.reap_every", "1m")
}

// AutomaticEnv only sees keys viper already knows about, nested ones
// without a default have to be bound explicitly.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"secret",
		"livekit.primary.url", "livekit.primary.api_key", "livekit.primary.api_secret",
		"livekit.secondary.url", "livekit.secondary.api_key", "livekit.secondary.api_secret",
		"database.dsn",
		"redis.addr", "redis.password", "redis.db",
	} {
		_ = v.BindEnv(key)
	}
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportLiveKit, TransportLocal:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if c.SkewHold < 0 {
		return errors.New("skew_hold must not be negative")
	}
	return nil
}
