package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.OutputRetentionDays < 0 {
		return errors.New("paths.output_retention_days must be >= 0")
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateYooKassa(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

// ValidateServe checks settings that only the daemon needs. CLI commands that
// inspect the database can run without credentials.
func (c *Config) ValidateServe() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'swipely config init')", defaultPath)
	}
	if c.BotEnabled() && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set when the Telegram bot is enabled (or set SWIPELY_JWT_SECRET)")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateLimits() error {
	l := c.Limits
	if l.MinSlides < 1 {
		return errors.New("limits.min_slides must be >= 1")
	}
	if l.MaxSlides < l.MinSlides {
		return errors.New("limits.max_slides must be >= limits.min_slides")
	}
	if l.DefaultSlides < l.MinSlides || l.DefaultSlides > l.MaxSlides {
		return errors.New("limits.default_slides must be between limits.min_slides and limits.max_slides")
	}
	if l.FreeDaily < 0 || l.ProDaily < 0 {
		return errors.New("limits.free_daily and limits.pro_daily must be >= 0")
	}
	if l.FreePhotoDaily < 0 || l.ProPhotoDaily < 0 {
		return errors.New("limits.free_photo_daily and limits.pro_photo_daily must be >= 0")
	}
	if l.HistorySize < 1 {
		return errors.New("limits.history_size must be >= 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Pipeline.ImageDelaySeconds < 0 {
		return errors.New("pipeline.image_delay_seconds must be >= 0")
	}
	if c.Pipeline.ImageAttempts < 1 {
		return errors.New("pipeline.image_attempts must be >= 1")
	}
	return nil
}

func (c *Config) validateYooKassa() error {
	if c.YooKassa.ShopID != "" && c.YooKassa.SecretKey == "" {
		return errors.New("yookassa.secret_key must be set when yookassa.shop_id is set")
	}
	price, err := strconv.ParseFloat(c.YooKassa.ProPrice, 64)
	if err != nil || price <= 0 {
		return fmt.Errorf("yookassa.pro_price must be a positive decimal, got %q", c.YooKassa.ProPrice)
	}
	if c.PaymentsEnabled() && strings.TrimSpace(c.YooKassa.ReturnURL) == "" {
		return errors.New("yookassa.return_url must be set when payments are enabled")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Concurrency > 8 {
		return errors.New("render.concurrency must be <= 8")
	}
	if c.Promo.SecondsPerSlide > 30 {
		return errors.New("promo.seconds_per_slide must be <= 30")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
