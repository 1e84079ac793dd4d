// Package config loads BookClub settings from command-line flags,
// environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App              AppConfig
	Logger           LoggerConfig
	Database         DatabaseConfig
	Server           ServerConfig
	Auth             AuthConfig
	IdentityProvider IdentityProviderConfig
	Notify           NotifyConfig
	Catalog          CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig holds resource store configuration.
type DatabaseConfig struct {
	Path string // sqlite file (default: ~/BookClub/bookclub.db)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins; empty allows any
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// HS256 secret shared with the identity provider.
	JWTSecret string
	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string
}

// IdentityProviderConfig holds the resource mirror settings. An empty
// BaseURL disables mirroring.
type IdentityProviderConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Enabled reports whether resources are mirrored to the identity provider.
func (c IdentityProviderConfig) Enabled() bool {
	return c.BaseURL != ""
}

// NotifyConfig holds change notification settings.
type NotifyConfig struct {
	// TopicBaseURL prefixes resource paths to form topic URIs.
	TopicBaseURL string
	// HubURL of an external Mercure-compatible hub. Empty keeps
	// notifications in process.
	HubURL       string
	HubJWTSecret string
}

// CatalogConfig holds the book catalog client settings.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bookclub", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := fs.String("db", "", "Path to the sqlite database")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")

	// Auth flags
	jwtSecret := fs.String("jwt-secret", "", "HS256 secret for bearer tokens")
	issuer := fs.String("jwt-issuer", "", "Expected token issuer")
	audience := fs.String("jwt-audience", "", "Expected token audience")

	// Identity provider flags
	idpURL := fs.String("idp-url", "", "Identity provider base URL (empty disables mirroring)")
	idpRealm := fs.String("idp-realm", "", "Identity provider realm")
	idpClientID := fs.String("idp-client-id", "", "Identity provider client ID")
	idpClientSecret := fs.String("idp-client-secret", "", "Identity provider client secret")
	idpTimeout := fs.String("idp-timeout", "", "Identity provider request timeout (default: 10s)")

	// Notification flags
	topicBaseURL := fs.String("topic-base-url", "", "Base URL of notification topics")
	hubURL := fs.String("hub-url", "", "External notification hub URL")
	hubSecret := fs.String("hub-jwt-secret", "", "Publisher secret of the external hub")

	// Catalog flags
	catalogURL := fs.String("catalog-url", "", "Book catalog base URL")
	catalogTimeout := fs.String("catalog-timeout", "", "Book catalog request timeout (default: 10s)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DATABASE_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Auth: AuthConfig{
			JWTSecret: getConfigValue(*jwtSecret, "JWT_SECRET", ""),
			Issuer:    getConfigValue(*issuer, "JWT_ISSUER", ""),
			Audience:  getConfigValue(*audience, "JWT_AUDIENCE", ""),
		},
		IdentityProvider: IdentityProviderConfig{
			BaseURL:      getConfigValue(*idpURL, "IDP_URL", ""),
			Realm:        getConfigValue(*idpRealm, "IDP_REALM", "bookclub"),
			ClientID:     getConfigValue(*idpClientID, "IDP_CLIENT_ID", ""),
			ClientSecret: getConfigValue(*idpClientSecret, "IDP_CLIENT_SECRET", ""),
		},
		Notify: NotifyConfig{
			TopicBaseURL: getConfigValue(*topicBaseURL, "TOPIC_BASE_URL", "http://localhost"),
			HubURL:       getConfigValue(*hubURL, "HUB_URL", ""),
			HubJWTSecret: getConfigValue(*hubSecret, "HUB_JWT_SECRET", ""),
		},
		Catalog: CatalogConfig{
			BaseURL: getConfigValue(*catalogURL, "CATALOG_URL", "https://openlibrary.org"),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.IdentityProvider.Timeout, *idpTimeout, "IDP_TIMEOUT", "10s"},
		{&cfg.Catalog.Timeout, *catalogTimeout, "CATALOG_TIMEOUT", "10s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Auth.JWTSecret == "" && c.App.Environment != "development" {
		return fmt.Errorf("JWT_SECRET is required in %s", c.App.Environment)
	}

	if c.IdentityProvider.Enabled() && c.IdentityProvider.ClientID == "" {
		return errors.New("IDP_CLIENT_ID is required when IDP_URL is set")
	}

	if c.Notify.HubURL != "" && c.Notify.HubJWTSecret == "" {
		return errors.New("HUB_JWT_SECRET is required when HUB_URL is set")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDatabasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "BookClub", "bookclub.db")

	expanded, err := expandPath(c.Database.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Database.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable (including values from .env).
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
