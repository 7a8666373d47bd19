package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	YTDLP        YTDLPConfig        `mapstructure:"ytdlp"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains settings for the local API used by the desktop shell
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AllowedOrigins lists browser origins besides the API's own that may call it
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// YTDLPConfig contains settings for locating and invoking yt-dlp
type YTDLPConfig struct {
	Binary          string        `mapstructure:"binary"`        // explicit path, empty means resolve
	Packaged        bool          `mapstructure:"packaged"`      // running from an installed bundle
	ResourcesDir    string        `mapstructure:"resources_dir"` // bundle resources root
	WorkDir         string        `mapstructure:"work_dir"`      // development checkout root
	OutputTemplate  string        `mapstructure:"output_template"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"` // 0 disables the timeout
	EventBuffer     int           `mapstructure:"event_buffer"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	CookieFile string `mapstructure:"cookie_file"`
	LogsDir    string `mapstructure:"logs_dir"`
}

// HistoryConfig contains settings for the download history database
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8787,
			AllowedOrigins: []string{},
		},
		YTDLP: YTDLPConfig{
			Binary:          "",
			Packaged:        false,
			ResourcesDir:    "",
			WorkDir:         ".",
			OutputTemplate:  "%(title)s.%(ext)s",
			MetadataTimeout: 0,
			EventBuffer:     64,
		},
		Download: DownloadConfig{
			OutputDir:  "$HOME/Downloads",
			CookieFile: "$HOME/.ytdesk/cookies.txt",
			LogsDir:    "$HOME/.ytdesk/logs",
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.ytdesk/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
