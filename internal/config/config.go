// internal/config/config.go
//
// Process configuration for the round server.
//
// Values come from the environment, after `.env` (if present) has been
// loaded by godotenv. Every key has a development default, so a bare
// `go run .` starts a working server on :9999 (game) and :5175 (HTTP).

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved configuration.
type Config struct {
	TCPAddr       string
	HTTPAddr      string
	RoundDuration time.Duration
	WordsFile     string

	StoreURL    string
	StoreDriver string

	SocialAddr string

	TranslateURL      string
	TranslateLangPair string
	TranslateTimeout  time.Duration

	JWTSecret  string
	JWTExpires time.Duration

	NotifyBuffer int
	BcryptCost   int
	ClientOrigin string

	LogLevel  string
	LogFormat string
}

// Load reads files (default ".env"; missing files are ignored) and then the
// environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	c := &Config{
		TCPAddr:           getEnv("TCP_ADDR", ":9999"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":5175"),
		WordsFile:         getEnv("WORDS_FILE", ""),
		StoreURL:          getEnv("STORE_URL", "./data/wordle.db"),
		StoreDriver:       getEnv("STORE_DRIVER", "sqlite3"),
		SocialAddr:        getEnv("SOCIAL_ADDR", "228.5.6.7:7000"),
		TranslateURL:      os.Getenv("TRANSLATE_URL"),
		TranslateLangPair: getEnv("TRANSLATE_LANGPAIR", "en|it"),
		JWTSecret:         getEnv("JWT_SECRET", "dev_secret_change_me"),
		ClientOrigin:      getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
	// TRANSLATE_URL set to empty disables lookups.
	if _, set := os.LookupEnv("TRANSLATE_URL"); !set {
		c.TranslateURL = "https://api.mymemory.translated.net/get"
	}

	var err error
	if c.RoundDuration, err = envDuration("ROUND_DURATION", 60*time.Second); err != nil {
		return nil, err
	}
	if c.TranslateTimeout, err = envDuration("TRANSLATE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	hours, err := envInt("JWT_EXPIRES_HOURS", 12)
	if err != nil {
		return nil, err
	}
	c.JWTExpires = time.Duration(hours) * time.Hour
	if c.NotifyBuffer, err = envInt("NOTIFY_BUFFER", 16); err != nil {
		return nil, err
	}
	if c.BcryptCost, err = envInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.RoundDuration <= 0:
		return fmt.Errorf("config: ROUND_DURATION must be positive")
	case c.NotifyBuffer <= 0:
		return fmt.Errorf("config: NOTIFY_BUFFER must be positive")
	case c.BcryptCost < 4 || c.BcryptCost > 31:
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31")
	case c.StoreDriver != "sqlite3" && c.StoreDriver != "sqlite":
		return fmt.Errorf("config: STORE_DRIVER must be sqlite3 or sqlite")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}

// envDuration accepts Go durations ("90s") or bare seconds ("90").
func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return d, nil
}
