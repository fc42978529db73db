package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	DefaultIndexType = "news.NewsIndexPage"
	DefaultPageType  = "news.NewsPage"
)

// Config holds every setting shared by the export, import and serve commands.
type Config struct {
	// API settings
	APIURL      string
	HTTPTimeout time.Duration
	IndexType   string
	PageType    string

	// Markdown settings
	OutputDir    string
	ContentDir   string
	ExportFormat string
	Location     *time.Location

	// Record store settings
	DatabasePath string

	// Server settings
	ListenAddr    string
	AppURL        string
	SessionSecret string

	// GitHub settings
	GithubClientID     string
	GithubClientSecret string
	GithubRedirectURL  string

	// Log settings
	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and builds a Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	// Helper to get env with default
	getEnv := func(key, fallback string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		APIURL:       getEnv("API_URL", "http://127.0.0.1:8000/api/v2/"),
		IndexType:    getEnv("INDEX_TYPE", DefaultIndexType),
		PageType:     getEnv("PAGE_TYPE", DefaultPageType),
		OutputDir:    getEnv("OUTPUT_DIR", "./content/nieuws"),
		ContentDir:   getEnv("CONTENT_DIR", "./content/nieuws"),
		ExportFormat: strings.ToLower(getEnv("EXPORT_FORMAT", "yaml")),
		DatabasePath: getEnv("DATABASE_PATH", "./news.db"),
		ListenAddr:   getEnv("LISTEN_ADDR", ":8000"),
		AppURL:       getEnv("APP_URL", "http://localhost:8000"),

		SessionSecret:      os.Getenv("SESSION_SECRET"),
		GithubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GithubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
	cfg.GithubRedirectURL = getEnv("GITHUB_REDIRECT_URL", strings.TrimRight(cfg.AppURL, "/")+"/auth/callback")

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("parse TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required),
		validation.Field(&c.IndexType, validation.Required),
		validation.Field(&c.PageType, validation.Required),
		validation.Field(&c.ExportFormat, validation.In("yaml", "toml").Error("must be yaml or toml")),
		validation.Field(&c.HTTPTimeout, validation.By(func(value any) error {
			if value.(time.Duration) < 0 {
				return validation.NewError("config.http_timeout.negative", "must not be negative")
			}
			return nil
		})),
	)
}

// PagesURL is the listing endpoint below the API root.
func (c *Config) PagesURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/pages/"
}

// OAuth returns the GitHub login config, or nil when no client is configured.
func (c *Config) OAuth() *oauth2.Config {
	if c.GithubClientID == "" || c.GithubClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     c.GithubClientID,
		ClientSecret: c.GithubClientSecret,
		Scopes:       []string{"read:user"},
		Endpoint:     github.Endpoint,
		RedirectURL:  c.GithubRedirectURL,
	}
}
