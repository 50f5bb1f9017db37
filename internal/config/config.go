// loads up the .env files and environment variables to be used internally by Cardpack.

package config

import (
	"Cardpack/internal/errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/joho/godotenv"
)

// Redis connection settings.
type RedisConfig struct {
	Addr     string `valid:"required"`
	Port     string `valid:"required,port"`
	Password string `valid:"-"`
	DB       int    `valid:"-"`
}

// Twitch EventSub ingestion settings.
type TwitchConfig struct {
	Enabled           bool          `valid:"-"`
	ClientID          string        `valid:"required~TWITCH_CLIENT_ID:missing"`
	ClientSecret      string        `valid:"required~TWITCH_CLIENT_SECRET:missing"`
	ChannelID         string        `valid:"required~TWITCH_CHANNEL_ID:missing"`
	RewardID          string        `valid:"required~TWITCH_REWARD_ID:missing"`
	DefaultSetID      string        `valid:"required~TWITCH_DEFAULT_SET_ID:missing"`
	EventSubURL       string        `valid:"required,url"`
	APIURL            string        `valid:"required,url"`
	AuthURL           string        `valid:"required,url"`
	ReconnectDelay    time.Duration `valid:"-"`
	ReconnectMaxDelay time.Duration `valid:"-"`
	TokenMargin       time.Duration `valid:"-"`
}

// Config holds all application configuration.
type Config struct {
	Env            string        `valid:"required,in(DEV|TEST|PROD)"`
	Version        string        `valid:"-"`
	SrvAddr        string        `valid:"-"`
	SrvPort        string        `valid:"required,port"`
	CORSOrigin     string        `valid:"required"`
	AdminJWTSecret string        `valid:"required~ADMIN_JWT_SECRET:missing"`
	AssetsPath     string        `valid:"required"`
	AckTimeout     time.Duration `valid:"-"`
	Redis          RedisConfig   `valid:"required"`
	Twitch         TwitchConfig  `valid:"-"`
}

// Load reads the given .env files (missing ones are skipped) and builds a validated Config.
// Values already present in the environment win over the files, as godotenv does.
func Load(paths ...string) (*Config, error) {
	for _, path := range paths {
		if _, staterr := os.Stat(path); staterr != nil {
			continue
		}
		if enverr := godotenv.Load(path); enverr != nil {
			return nil, enverr
		}
	}
	return FromEnv()
}

// FromEnv builds a validated Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "DEV"),
		Version:        getEnv("VERSION", "1.0.0"),
		SrvAddr:        getEnv("SRV_ADDR", ""),
		SrvPort:        getEnv("SRV_PORT", "3001"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		AssetsPath:     getEnv("ASSETS_PATH", "assets"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Twitch: TwitchConfig{
			ClientID:     os.Getenv("TWITCH_CLIENT_ID"),
			ClientSecret: os.Getenv("TWITCH_CLIENT_SECRET"),
			ChannelID:    os.Getenv("TWITCH_CHANNEL_ID"),
			RewardID:     os.Getenv("TWITCH_REWARD_ID"),
			DefaultSetID: os.Getenv("TWITCH_DEFAULT_SET_ID"),
			EventSubURL:  getEnv("TWITCH_EVENTSUB_URL", "wss://eventsub.wss.twitch.tv/ws"),
			APIURL:       getEnv("TWITCH_API_URL", "https://api.twitch.tv/helix"),
			AuthURL:      getEnv("TWITCH_AUTH_URL", "https://id.twitch.tv/oauth2"),
		},
	}

	var perr error
	if cfg.Redis.DB, perr = getInt("REDIS_DB_NUMBER", 0); perr != nil {
		return nil, perr
	}
	if cfg.Twitch.Enabled, perr = getBool("TWITCH_ENABLED", true); perr != nil {
		return nil, perr
	}
	if cfg.AckTimeout, perr = getDuration("ACK_TIMEOUT", 60*time.Second); perr != nil {
		return nil, perr
	}
	if cfg.Twitch.ReconnectDelay, perr = getDuration("TWITCH_RECONNECT_DELAY", 5*time.Second); perr != nil {
		return nil, perr
	}
	if cfg.Twitch.ReconnectMaxDelay, perr = getDuration("TWITCH_RECONNECT_MAX_DELAY", 0); perr != nil {
		return nil, perr
	}
	if cfg.Twitch.TokenMargin, perr = getDuration("TWITCH_TOKEN_MARGIN", time.Minute); perr != nil {
		return nil, perr
	}

	if valerr := cfg.Validate(); valerr != nil {
		return nil, valerr
	}
	return cfg, nil
}

// Validate checks the Config against its validation tags.
// Twitch settings are only checked when ingestion is enabled.
func (c *Config) Validate() error {
	if _, valerr := govalidator.ValidateStruct(c); valerr != nil {
		return toValidationResponse(valerr)
	}
	if c.Twitch.Enabled {
		if _, valerr := govalidator.ValidateStruct(c.Twitch); valerr != nil {
			return toValidationResponse(valerr)
		}
		if c.Twitch.ReconnectDelay <= 0 {
			return errors.GenerateValidationErrorResponse([]error{errors.New("TWITCH_RECONNECT_DELAY:must be positive")})
		}
	}
	return nil
}

func toValidationResponse(valerr error) error {
	if errs, ok := valerr.(govalidator.Errors); ok {
		return errors.GenerateValidationErrorResponse(errs.Errors())
	}
	return valerr
}

// Address the HTTP server listens on.
func (c *Config) ListenAddr() string {
	return c.SrvAddr + ":" + c.SrvPort
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	value, prserr := strconv.Atoi(raw)
	if prserr != nil {
		return 0, errors.GenerateValidationErrorResponse([]error{errors.New(key + ":not an integer")})
	}
	return value, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	value, prserr := strconv.ParseBool(raw)
	if prserr != nil {
		return false, errors.GenerateValidationErrorResponse([]error{errors.New(key + ":not a boolean")})
	}
	return value, nil
}

// Durations accept Go syntax ("5s", "1m30s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	if seconds, prserr := strconv.Atoi(raw); prserr == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	value, prserr := time.ParseDuration(raw)
	if prserr != nil {
		return 0, errors.GenerateValidationErrorResponse([]error{errors.New(key + ":not a duration")})
	}
	return value, nil
}
