package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// Portal fetch modes.
const (
	// PortalModeHTTP logs in with a plain form POST and reads the tracks
	// JSON inlined into the response.
	PortalModeHTTP = "http"
	// PortalModeBrowser drives a headless browser through the login form.
	PortalModeBrowser = "browser"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the command surface listens.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// DBPath is the SQLite database file for the item store.
	DBPath string `mapstructure:"DB_PATH" default:"cargo.db"`
	// PollInterval is the scheduler's cycle interval.
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL" default:"1h"`

	// Portal holds the cargo portal credentials and fetch mode.
	Portal PortalConfig `mapstructure:",squash"`

	// Cache holds the snapshot cache settings.
	Cache CacheConfig `mapstructure:",squash"`

	// Telegram holds the Telegram notification settings.
	Telegram TelegramConfig `mapstructure:",squash"`

	// Pushover holds the Pushover notification settings.
	Pushover PushoverConfig `mapstructure:",squash"`

	// Proxy holds the outbound proxy settings for the browser mode.
	Proxy ProxyConfig `mapstructure:",squash"`
}

// PortalConfig holds the credentials for the cargo portal.
type PortalConfig struct {
	// LoginURL is the portal's login endpoint.
	LoginURL string `mapstructure:"PORTAL_URL" default:"https://emir-cargo.kz/login"`
	// Login is the portal account login.
	Login string `mapstructure:"PORTAL_LOGIN" required:"true"`
	// Password is the portal account password.
	Password string `mapstructure:"PORTAL_PASSWORD" required:"true"`
	// Mode selects how snapshots are fetched: http or browser.
	Mode string `mapstructure:"PORTAL_MODE" default:"http"`
	// BreakerCooldown is how long an open circuit skips portal fetches.
	BreakerCooldown time.Duration `mapstructure:"PORTAL_BREAKER_COOLDOWN" default:"15m"`
}

// CacheConfig holds the Redis snapshot cache settings.
type CacheConfig struct {
	// RedisURL enables the snapshot cache when set (redis://host:port).
	RedisURL string `mapstructure:"REDIS_URL"`
	// SnapshotTTL is how long a fetched snapshot stays reusable.
	SnapshotTTL time.Duration `mapstructure:"SNAPSHOT_TTL" default:"10m"`
}

// TelegramConfig holds Telegram Bot API credentials.
type TelegramConfig struct {
	// BotToken is the bot's API token; empty disables the Telegram sink.
	BotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	// ChatID is the chat receiving notifications.
	ChatID string `mapstructure:"TELEGRAM_CHAT_ID"`
}

// PushoverConfig holds Pushover API credentials.
type PushoverConfig struct {
	// URL is the messages endpoint.
	URL string `mapstructure:"PUSHOVER_URL" default:"https://api.pushover.net/1/messages.json"`
	// AppToken is the application token; empty disables the Pushover sink.
	AppToken string `mapstructure:"PUSHOVER_TOKEN"`
	// UserToken is the receiving user's token.
	UserToken string `mapstructure:"PUSHOVER_USER"`
}

// ProxyConfig holds outbound proxy details for browser-mode fetches.
type ProxyConfig struct {
	// Enabled turns the proxy on.
	Enabled bool `mapstructure:"PROXY_ENABLED" default:"false"`
	// Hostname is the proxy server hostname.
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	// Port is the proxy server port.
	Port int `mapstructure:"PROXY_PORT"`
	// Username authenticates against the proxy.
	Username string `mapstructure:"PROXY_USERNAME"`
	// Password authenticates against the proxy.
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if config.Portal.Mode != PortalModeHTTP && config.Portal.Mode != PortalModeBrowser {
		return nil, fmt.Errorf("invalid PORTAL_MODE: %s", config.Portal.Mode)
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
