package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/oauth2/endpoints"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Mail     MailConfig     `mapstructure:"mail"`
	Hashing  HashingConfig  `mapstructure:"hashing"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
	PublicDir               string        `mapstructure:"public_dir"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN prefers the connection URL and falls back to key/value form.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type MailConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	User         string        `mapstructure:"user"`
	BrandingName string        `mapstructure:"branding_name"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	OAuth        MailOAuth     `mapstructure:"oauth"`
}

// MailOAuth holds the long-lived credentials used for the refresh-token exchange.
type MailOAuth struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	RefreshToken string        `mapstructure:"refresh_token"`
	TokenURL     string        `mapstructure:"token_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type HashingConfig struct {
	Time      uint32 `mapstructure:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib"`
	Threads   uint8  `mapstructure:"threads"`
	KeyLen    uint32 `mapstructure:"key_len"`
	SaltLen   int    `mapstructure:"salt_len"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the variables they are read from. The bare
// names (PORT, CLIENT_ID, ...) are what existing deployments export.
var envBindings = map[string][]string{
	"server.port":              {"SERVER_PORT", "PORT"},
	"database.postgres.url":    {"DATABASE_POSTGRES_URL", "DATABASE_URL"},
	"mail.oauth.client_id":     {"MAIL_OAUTH_CLIENT_ID", "CLIENT_ID"},
	"mail.oauth.client_secret": {"MAIL_OAUTH_CLIENT_SECRET", "CLIENT_SECRET"},
	"mail.oauth.redirect_uri":  {"MAIL_OAUTH_REDIRECT_URI", "REDIRECT_URI"},
	"mail.oauth.refresh_token": {"MAIL_OAUTH_REFRESH_TOKEN", "REFRESH_TOKEN"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.graceful_shutdown_timeout", "10s")
	v.SetDefault("server.public_dir", "")

	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.db", "referralhub")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.conn_max_lifetime", "1h")
	v.SetDefault("database.postgres.auto_migrate", true)

	v.SetDefault("database.redis.host", "localhost")
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("state.backend", "memory")

	v.SetDefault("mail.enabled", true)
	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 465)
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.branding_name", "accredian")
	v.SetDefault("mail.send_timeout", "30s")
	v.SetDefault("mail.oauth.token_url", endpoints.Google.TokenURL)
	v.SetDefault("mail.oauth.timeout", "10s")

	v.SetDefault("hashing.time", 1)
	v.SetDefault("hashing.memory_kib", 19456)
	v.SetDefault("hashing.threads", 2)
	v.SetDefault("hashing.key_len", 32)
	v.SetDefault("hashing.salt_len", 16)

	v.SetDefault("cors.allowed_origins", []string{"https://accredian-frontend-task-d09svinyy.vercel.app"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yaml (optional), loads .env into the process environment,
// overlays environment variables, and returns a validated Config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Environment variable override: DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be within 1-65535, got %d", c.Server.Port)
	}
	switch c.State.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown state.backend %q", c.State.Backend)
	}
	if c.Hashing.SaltLen < 8 {
		return fmt.Errorf("config: hashing.salt_len must be at least 8")
	}
	if c.Mail.Enabled {
		missing := []string{}
		if c.Mail.User == "" {
			missing = append(missing, "mail.user")
		}
		if c.Mail.OAuth.ClientID == "" {
			missing = append(missing, "mail.oauth.client_id")
		}
		if c.Mail.OAuth.ClientSecret == "" {
			missing = append(missing, "mail.oauth.client_secret")
		}
		if c.Mail.OAuth.RefreshToken == "" {
			missing = append(missing, "mail.oauth.refresh_token")
		}
		if len(missing) > 0 {
			return fmt.Errorf("config: mail is enabled but %s not set", strings.Join(missing, ", "))
		}
	}
	return nil
}
