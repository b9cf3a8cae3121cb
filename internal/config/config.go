package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DataDir               string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	LoginRatePerMinute    int
	Timezone              string
	// SeedPIN is only read from the environment, where the user seeder looks for it.
	SeedPIN string
}

// Load reads the environment, and the file named by POS_CONFIG_FILE when set.
// Environment variables win over the file.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATA_DIR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 720)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 5)
	v.SetDefault("TIMEZONE", "")

	if file := strings.TrimSpace(v.GetString("POS_CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("[config] WARN: could not read %s, using environment only: %v", file, err)
		}
	}

	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 720
	}
	loginRate := v.GetInt("LOGIN_RATE_PER_MINUTE")
	if loginRate < 1 {
		loginRate = 5
	}

	return Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DataDir:               strings.TrimSpace(v.GetString("DATA_DIR")),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		LoginRatePerMinute:    loginRate,
		Timezone:              strings.TrimSpace(v.GetString("TIMEZONE")),
		SeedPIN:               strings.TrimSpace(os.Getenv("SEED_DEFAULT_PIN")),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves TIMEZONE. An empty value means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
