package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/ytdesk/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ytdesk")
		v.AddConfigPath("/etc/ytdesk")
	}

	// Defaults make every key known to viper so YTDESK_* overrides apply
	// even when no config file sets them
	setDefaults(v, config)

	v.SetEnvPrefix("YTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)
	v.SetDefault("server.allowed_origins", config.Server.AllowedOrigins)

	v.SetDefault("ytdlp.binary", config.YTDLP.Binary)
	v.SetDefault("ytdlp.packaged", config.YTDLP.Packaged)
	v.SetDefault("ytdlp.resources_dir", config.YTDLP.ResourcesDir)
	v.SetDefault("ytdlp.work_dir", config.YTDLP.WorkDir)
	v.SetDefault("ytdlp.output_template", config.YTDLP.OutputTemplate)
	v.SetDefault("ytdlp.metadata_timeout", config.YTDLP.MetadataTimeout)
	v.SetDefault("ytdlp.event_buffer", config.YTDLP.EventBuffer)

	v.SetDefault("download.output_dir", config.Download.OutputDir)
	v.SetDefault("download.cookie_file", config.Download.CookieFile)
	v.SetDefault("download.logs_dir", config.Download.LogsDir)

	v.SetDefault("history.enabled", config.History.Enabled)
	v.SetDefault("history.database_path", config.History.DatabasePath)

	v.SetDefault("notification.enabled", config.Notification.Enabled)
	v.SetDefault("notification.sound", config.Notification.Sound)
	v.SetDefault("notification.method", config.Notification.Method)

	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.YTDLP.Binary = expandPath(config.YTDLP.Binary)
	config.YTDLP.ResourcesDir = expandPath(config.YTDLP.ResourcesDir)
	config.YTDLP.WorkDir = expandPath(config.YTDLP.WorkDir)
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.CookieFile = expandPath(config.Download.CookieFile)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths.
// yt-dlp output templates are never passed through here; "%(title)s" must stay verbatim.
func expandPath(path string) string {
	// $HOME first so it resolves even when the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if config.YTDLP.OutputTemplate == "" {
		return fmt.Errorf("yt-dlp output template not configured")
	}

	if config.YTDLP.MetadataTimeout < 0 {
		return fmt.Errorf("metadata timeout cannot be negative")
	}

	if config.YTDLP.EventBuffer < 1 {
		return fmt.Errorf("event buffer must be at least 1")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, config)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
