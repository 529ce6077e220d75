package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeTelegram()
	c.normalizeAuth()
	c.normalizeYooKassa()
	c.normalizeLimits()
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = envOverride(c.Paths.APIToken, "SWIPELY_API_TOKEN")
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envOverride(c.LLM.APIKey, "OPENROUTER_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.FallbackModel = strings.TrimSpace(c.LLM.FallbackModel)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = envOverride(c.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	c.Gemini.ImageModel = strings.TrimSpace(c.Gemini.ImageModel)
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = defaultGeminiImageModel
	}
	c.Gemini.FallbackImageModel = strings.TrimSpace(c.Gemini.FallbackImageModel)
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = envOverride(c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	c.Telegram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.BaseURL), "/")
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = defaultTelegramBaseURL
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultTelegramPollTimeout
	}
	if c.Telegram.InitDataMaxAgeSecond <= 0 {
		c.Telegram.InitDataMaxAgeSecond = defaultInitDataMaxAgeSeconds
	}
	c.Telegram.MiniAppURL = strings.TrimSpace(c.Telegram.MiniAppURL)
}

func (c *Config) normalizeAuth() {
	c.Auth.JWTSecret = envOverride(c.Auth.JWTSecret, "SWIPELY_JWT_SECRET")
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = defaultSessionTTLHours
	}
}

func (c *Config) normalizeYooKassa() {
	c.YooKassa.ShopID = envOverride(c.YooKassa.ShopID, "YOOKASSA_SHOP_ID")
	c.YooKassa.SecretKey = envOverride(c.YooKassa.SecretKey, "YOOKASSA_SECRET_KEY")
	c.YooKassa.BaseURL = strings.TrimRight(strings.TrimSpace(c.YooKassa.BaseURL), "/")
	if c.YooKassa.BaseURL == "" {
		c.YooKassa.BaseURL = defaultYooKassaBaseURL
	}
	c.YooKassa.ProPrice = strings.TrimSpace(c.YooKassa.ProPrice)
	if c.YooKassa.ProPrice == "" {
		c.YooKassa.ProPrice = defaultYooKassaProPrice
	}
	if c.YooKassa.ProDays <= 0 {
		c.YooKassa.ProDays = defaultYooKassaProDays
	}
	c.YooKassa.Currency = strings.ToUpper(strings.TrimSpace(c.YooKassa.Currency))
	if c.YooKassa.Currency == "" {
		c.YooKassa.Currency = defaultYooKassaCurrency
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.MinSlides <= 0 {
		c.Limits.MinSlides = defaultMinSlides
	}
	if c.Limits.MaxSlides <= 0 {
		c.Limits.MaxSlides = defaultMaxSlides
	}
	if c.Limits.DefaultSlides <= 0 {
		c.Limits.DefaultSlides = defaultSlides
	}
	if c.Limits.HistorySize <= 0 {
		c.Limits.HistorySize = defaultHistorySize
	}
}

func (c *Config) normalizeRender() {
	c.Render.ChromeBin = strings.TrimSpace(c.Render.ChromeBin)
	if c.Render.Concurrency <= 0 {
		c.Render.Concurrency = defaultRenderConcurrency
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
	c.Promo.FFmpegBin = strings.TrimSpace(c.Promo.FFmpegBin)
	if c.Promo.FFmpegBin == "" {
		c.Promo.FFmpegBin = defaultFFmpegBin
	}
	if c.Promo.SecondsPerSlide <= 0 {
		c.Promo.SecondsPerSlide = defaultPromoSecondsPerSlide
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// envOverride prefers a non-empty environment value over the file value.
func envOverride(current string, keys ...string) string {
	if value := lookupEnv(keys...); value != "" {
		return value
	}
	return strings.TrimSpace(current)
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
