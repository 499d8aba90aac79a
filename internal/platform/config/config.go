package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Push        PushConfig        `mapstructure:"push"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Events      EventsConfig      `mapstructure:"events"`
	Conversions ConversionsConfig `mapstructure:"conversions"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Admin       AdminConfig       `mapstructure:"admin"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig selects the storage backend. Driver is "sqlite3" or
// "postgres"; URL is a file path (or :memory:) for sqlite3 and a DSN for
// postgres.
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string        `mapstructure:"vapid_private_key"`
	Subject         string        `mapstructure:"subject"`
	TTL             int           `mapstructure:"ttl"`
	DefaultIcon     string        `mapstructure:"default_icon"`
	DefaultBadge    string        `mapstructure:"default_badge"`
	DefaultURL      string        `mapstructure:"default_url"`
	Parallelism     int           `mapstructure:"parallelism"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
}

type AnalyticsConfig struct {
	Timezone string        `mapstructure:"timezone"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	ResetPhrase       string        `mapstructure:"reset_phrase"`
	BlacklistCacheTTL time.Duration `mapstructure:"blacklist_cache_ttl"`
}

type ConversionsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoint    string        `mapstructure:"endpoint"`
	PixelID     string        `mapstructure:"pixel_id"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	IngestPerMinute    int `mapstructure:"ingest_per_minute"`
	SubscribePerMinute int `mapstructure:"subscribe_per_minute"`
	LoginPerMinute     int `mapstructure:"login_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type SchedulerConfig struct {
	Broadcasts []BroadcastConfig `mapstructure:"broadcasts"`
}

// BroadcastConfig sends a stored template every day at At ("HH:MM",
// analytics timezone).
type BroadcastConfig struct {
	TemplateID string `mapstructure:"template_id"`
	At         string `mapstructure:"at"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "data/pushr.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("push.subject", "admin@example.com")
	v.SetDefault("push.ttl", 86400)
	v.SetDefault("push.default_icon", "/icons/icon-192x192.png")
	v.SetDefault("push.default_badge", "/icons/icon-96x96.png")
	v.SetDefault("push.default_url", "/")
	v.SetDefault("push.parallelism", 0)
	v.SetDefault("push.send_timeout", 90*time.Second)

	v.SetDefault("analytics.timezone", "UTC")
	v.SetDefault("analytics.timeout", time.Minute)

	v.SetDefault("events.reset_phrase", "RESET ALL EVENTS")
	v.SetDefault("events.blacklist_cache_ttl", 30*time.Second)

	v.SetDefault("conversions.enabled", false)
	v.SetDefault("conversions.endpoint", "https://graph.facebook.com/v19.0")
	v.SetDefault("conversions.timeout", 5*time.Second)

	v.SetDefault("jwt.access_token_ttl", 12*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("rate_limit.ingest_per_minute", 600)
	v.SetDefault("rate_limit.subscribe_per_minute", 30)
	v.SetDefault("rate_limit.login_per_minute", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the YAML file at path when it exists and layers environment
// overrides on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Location resolves the analytics timezone, falling back to UTC.
func (c AnalyticsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
