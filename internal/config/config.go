package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`

	// OutputRetentionDays removes rendered job directories after this many
	// days. 0 keeps them forever.
	OutputRetentionDays int `toml:"output_retention_days"`
}

// LLM contains OpenRouter connection settings used for slide text and scene descriptions.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	FallbackModel  string `toml:"fallback_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains Google GenAI settings used for Photo Mode images.
type Gemini struct {
	APIKey             string `toml:"api_key"`
	ImageModel         string `toml:"image_model"`
	FallbackImageModel string `toml:"fallback_image_model"`
}

// Telegram contains bot and Mini App settings.
type Telegram struct {
	BotToken             string  `toml:"bot_token"`
	BaseURL              string  `toml:"base_url"`
	AdminIDs             []int64 `toml:"admin_ids"`
	PollTimeout          int     `toml:"poll_timeout"`
	MiniAppURL           string  `toml:"mini_app_url"`
	InitDataMaxAgeSecond int     `toml:"init_data_max_age"`
}

// Auth contains session token settings for the HTTP API.
type Auth struct {
	JWTSecret       string `toml:"jwt_secret"`
	SessionTTLHours int    `toml:"session_ttl_hours"`
}

// YooKassa contains payment provider settings.
type YooKassa struct {
	ShopID    string `toml:"shop_id"`
	SecretKey string `toml:"secret_key"`
	BaseURL   string `toml:"base_url"`
	ReturnURL string `toml:"return_url"`
	ProPrice  string `toml:"pro_price"`
	ProDays   int    `toml:"pro_days"`
	Currency  string `toml:"currency"`
}

// Limits contains usage quotas and carousel bounds.
type Limits struct {
	FreeDaily      int `toml:"free_daily"`
	ProDaily       int `toml:"pro_daily"`
	FreePhotoDaily int `toml:"free_photo_daily"`
	ProPhotoDaily  int `toml:"pro_photo_daily"`
	MinSlides      int `toml:"min_slides"`
	MaxSlides      int `toml:"max_slides"`
	DefaultSlides  int `toml:"default_slides"`
	HistorySize    int `toml:"history_size"`
}

// Render contains headless browser settings for PNG export.
type Render struct {
	ChromeBin      string `toml:"chrome_bin"`
	Headless       bool   `toml:"headless"`
	Concurrency    int    `toml:"concurrency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains generation pipeline pacing.
type Pipeline struct {
	ImageDelaySeconds int `toml:"image_delay_seconds"`
	ImageAttempts     int `toml:"image_attempts"`
}

// Promo contains promotional video settings.
type Promo struct {
	FFmpegBin       string  `toml:"ffmpeg_bin"`
	SecondsPerSlide float64 `toml:"seconds_per_slide"`
	EncodeAV1       bool    `toml:"encode_av1"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Payments           bool   `toml:"payments"`
	Failures           bool   `toml:"failures"`
	Queue              bool   `toml:"queue"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Swipely.
//
// Configuration sections by subsystem:
//   - Paths: data, log and output directories plus the API bind address
//   - LLM: OpenRouter text generation
//   - Gemini: Photo Mode image generation
//   - Telegram: bot token, admins and Mini App validation
//   - Auth: API session tokens
//   - YooKassa: subscription payments
//   - Limits: daily quotas and slide bounds
//   - Render: headless Chrome export
//   - Pipeline: image pacing
//   - Promo: promotional video generation
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Telegram      Telegram      `toml:"telegram"`
	Auth          Auth          `toml:"auth"`
	YooKassa      YooKassa      `toml:"yookassa"`
	Limits        Limits        `toml:"limits"`
	Render        Render        `toml:"render"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Promo         Promo         `toml:"promo"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "swipely.db")
}

// JobOutputDir returns the directory holding rendered files for a job.
func (c *Config) JobOutputDir(jobID int64) string {
	return filepath.Join(c.Paths.OutputDir, fmt.Sprintf("job-%06d", jobID))
}

// IsAdmin reports whether the Telegram user is configured as an administrator.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// PaymentsEnabled reports whether YooKassa credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return strings.TrimSpace(c.YooKassa.ShopID) != "" && strings.TrimSpace(c.YooKassa.SecretKey) != ""
}

// BotEnabled reports whether a Telegram bot token is configured.
func (c *Config) BotEnabled() bool {
	return strings.TrimSpace(c.Telegram.BotToken) != ""
}

// LLMConfig contains the resolved OpenRouter settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	FallbackModel  string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		FallbackModel:  strings.TrimSpace(c.LLM.FallbackModel),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
