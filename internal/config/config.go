// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
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
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Backup  BackupConfig
	Remote  RemoteConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds local data storage configuration.
type StorageConfig struct {
	// DataPath is the base directory for the database, search index,
	// and cached credentials (default: ~/NoteKeep/data).
	DataPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the extension client
}

// BackupConfig holds cloud backup scheduling configuration.
type BackupConfig struct {
	// Enabled allows disabling automatic backups entirely (default: true).
	Enabled bool
	// Interval is the minimum time between automatic backups (default: 24h).
	Interval time.Duration
	// CheckInterval is how often the backup loop wakes up to consult the
	// scheduler (default: 1m). The scheduler itself holds no timers.
	CheckInterval time.Duration
	// FolderName is the remote container folder (default: NoteKeep).
	FolderName string
	// FileName is the remote backup file (default: notekeep-backup.json).
	FileName string
}

// RemoteConfig holds remote file-storage and OAuth configuration.
type RemoteConfig struct {
	// APIBaseURL is the metadata/query endpoint of the file-storage API.
	APIBaseURL string
	// UploadBaseURL is the content upload endpoint.
	UploadBaseURL string
	// TokenURL is the OAuth token endpoint for silent refresh.
	TokenURL string
	// AuthURL is the OAuth consent endpoint for interactive sign-in.
	AuthURL string
	// ClientID and ClientSecret identify this installation to the provider.
	ClientID     string
	ClientSecret string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for local data storage")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := flag.String("allowed-origins", "", "Comma-separated CORS origins")

	backupEnabled := flag.String("backup-enabled", "", "Enable automatic backups (default: true)")
	backupInterval := flag.String("backup-interval", "", "Minimum time between automatic backups (default: 24h)")
	backupCheckInterval := flag.String("backup-check-interval", "", "Backup scheduler polling interval (default: 1m)")
	backupFolder := flag.String("backup-folder", "", "Remote backup folder name (default: NoteKeep)")
	backupFile := flag.String("backup-file", "", "Remote backup file name (default: notekeep-backup.json)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitOrigins(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		Backup: BackupConfig{
			Enabled:    getBoolConfigValue(*backupEnabled, "BACKUP_ENABLED", true),
			FolderName: getConfigValue(*backupFolder, "BACKUP_FOLDER_NAME", "NoteKeep"),
			FileName:   getConfigValue(*backupFile, "BACKUP_FILE_NAME", "notekeep-backup.json"),
		},
		Remote: RemoteConfig{
			APIBaseURL:    getConfigValue("", "REMOTE_API_BASE_URL", "https://www.googleapis.com/drive/v3"),
			UploadBaseURL: getConfigValue("", "REMOTE_UPLOAD_BASE_URL", "https://www.googleapis.com/upload/drive/v3"),
			TokenURL:      getConfigValue("", "REMOTE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			AuthURL:       getConfigValue("", "REMOTE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			ClientID:      getConfigValue("", "REMOTE_CLIENT_ID", ""),
			ClientSecret:  getConfigValue("", "REMOTE_CLIENT_SECRET", ""),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Backup.Interval, err = parseDurationValue(*backupInterval, "BACKUP_INTERVAL", "24h"); err != nil {
		return nil, err
	}
	if cfg.Backup.CheckInterval, err = parseDurationValue(*backupCheckInterval, "BACKUP_CHECK_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
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

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Backup.Interval <= 0 {
		return errors.New("backup interval must be positive")
	}
	if c.Backup.CheckInterval <= 0 {
		return errors.New("backup check interval must be positive")
	}
	if c.Backup.FileName == "" || c.Backup.FolderName == "" {
		return errors.New("backup file and folder names cannot be empty")
	}

	// Remote credentials can be empty - backup stays disabled until the
	// user signs in, mirroring the signed-out welcome state.

	return nil
}

// DatabasePath returns the Badger database directory under the data path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "db")
}

// SearchIndexPath returns the Bleve index directory under the data path.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.Storage.DataPath, "search.bleve")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "NoteKeep", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// splitOrigins splits a comma-separated origin list, trimming whitespace.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(strings.ReplaceAll(envKey, "_", " ")), raw, err)
	}
	return d, nil
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
