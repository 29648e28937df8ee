package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Settings   SettingsConfig   `mapstructure:"settings"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GatewayConfig points at the MTProto gateway serving chat history.
// Placeholder values switch the scanner to the degraded mock source.
type GatewayConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	SessionString   string        `mapstructure:"session_string"`
	EntityTimeout   time.Duration `mapstructure:"entity_timeout"`
	MessagesTimeout time.Duration `mapstructure:"messages_timeout"`
	ListTimeout     time.Duration `mapstructure:"list_timeout"`
}

// TelegramConfig holds bot credentials for channel dispatch (env-level
// fallback; the dispatcher prefers sheet/settings-store values).
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChannelID string `mapstructure:"channel_id"`
}

// SheetsConfig holds Google Sheets service-account defaults
type SheetsConfig struct {
	ServiceAccountEmail string `mapstructure:"service_account_email"`
	PrivateKey          string `mapstructure:"private_key"`
	SpreadsheetID       string `mapstructure:"spreadsheet_id"`
	MessagesSheet       string `mapstructure:"messages_sheet"`
	LeadsSheet          string `mapstructure:"leads_sheet"`
	SettingsSheet       string `mapstructure:"settings_sheet"`
}

// OpenRouterConfig holds classifier tuning. The thresholds are policy,
// not constants, so they live here.
type OpenRouterConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	MaxMessages    int           `mapstructure:"max_messages"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	MaxPromptChars int           `mapstructure:"max_prompt_chars"`
	ChunkDelay     time.Duration `mapstructure:"chunk_delay"`
	MinConfidence  int           `mapstructure:"min_confidence"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScannerConfig holds scan scheduling defaults
type ScannerConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	AnalysisDelay   time.Duration `mapstructure:"analysis_delay"`
	FetchLimit      int           `mapstructure:"fetch_limit"`
	HistorySize     int           `mapstructure:"history_size"`
}

// DispatchConfig holds the dispatch cron policy
type DispatchConfig struct {
	Schedule     string        `mapstructure:"schedule"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	SendDelay    time.Duration `mapstructure:"send_delay"`
}

// SettingsConfig locates the persisted settings file
type SettingsConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("gateway.entity_timeout", "10s")
	viper.SetDefault("gateway.messages_timeout", "45s")
	viper.SetDefault("gateway.list_timeout", "10s")

	viper.SetDefault("sheets.messages_sheet", "Messages")
	viper.SetDefault("sheets.leads_sheet", "Leads")
	viper.SetDefault("sheets.settings_sheet", "Settings")

	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "google/gemini-2.0-flash-001")
	viper.SetDefault("openrouter.max_messages", 5000)
	viper.SetDefault("openrouter.chunk_size", 100)
	viper.SetDefault("openrouter.max_prompt_chars", 100000)
	viper.SetDefault("openrouter.chunk_delay", "500ms")
	viper.SetDefault("openrouter.min_confidence", 30)
	viper.SetDefault("openrouter.max_tokens", 8192)
	viper.SetDefault("openrouter.temperature", 0.1)
	viper.SetDefault("openrouter.request_timeout", "60s")

	viper.SetDefault("scanner.default_interval", "1h")
	viper.SetDefault("scanner.analysis_delay", "2m")
	viper.SetDefault("scanner.fetch_limit", 1000)
	viper.SetDefault("scanner.history_size", 100)

	viper.SetDefault("dispatch.schedule", "0,30 * * * *")
	viper.SetDefault("dispatch.max_retries", 3)
	viper.SetDefault("dispatch.retry_backoff", "15s")
	viper.SetDefault("dispatch.max_backoff", "30s")
	viper.SetDefault("dispatch.send_delay", "1500ms")

	viper.SetDefault("settings.file_path", "persistent-settings.json")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("gateway.base_url", "TG_GATEWAY_URL")
	viper.BindEnv("gateway.session_string", "TG_SESSION_STRING")

	viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("telegram.channel_id", "TELEGRAM_CHANNEL_ID")

	viper.BindEnv("sheets.service_account_email", "GOOGLE_SHEETS_CLIENT_EMAIL")
	viper.BindEnv("sheets.private_key", "GOOGLE_SHEETS_PRIVATE_KEY")
	viper.BindEnv("sheets.spreadsheet_id", "GOOGLE_SPREADSHEET_ID")

	viper.BindEnv("openrouter.base_url", "OPENROUTER_BASE_URL")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")

	viper.BindEnv("scanner.default_interval", "SCANNER_DEFAULT_INTERVAL")
	viper.BindEnv("scanner.fetch_limit", "SCANNER_FETCH_LIMIT")

	viper.BindEnv("dispatch.schedule", "DISPATCH_SCHEDULE")
	viper.BindEnv("dispatch.max_retries", "DISPATCH_MAX_RETRIES")

	viper.BindEnv("settings.file_path", "SETTINGS_FILE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Scanner.DefaultInterval <= 0 {
		return fmt.Errorf("scanner default interval must be greater than 0")
	}

	if c.Scanner.AnalysisDelay <= 0 {
		return fmt.Errorf("scanner analysis delay must be greater than 0")
	}

	if c.Dispatch.Schedule == "" {
		return fmt.Errorf("dispatch schedule is required")
	}

	if c.OpenRouter.ChunkSize <= 0 || c.OpenRouter.MaxMessages <= 0 {
		return fmt.Errorf("openrouter chunk size and max messages must be greater than 0")
	}

	return nil
}
