package config

const (
	defaultConfigPath              = "~/.config/swipely/config.toml"
	defaultDataDir                 = "~/.local/share/swipely"
	defaultLogDir                  = "~/.local/share/swipely/logs"
	defaultOutputDir               = "~/.local/share/swipely/carousels"
	defaultAPIBind                 = "127.0.0.1:8787"
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "anthropic/claude-sonnet-4.5"
	defaultLLMFallbackModel        = "google/gemini-2.5-flash"
	defaultLLMReferer              = "https://swipely.app"
	defaultLLMTitle                = "Swipely"
	defaultLLMTimeoutSeconds       = 90
	defaultGeminiImageModel        = "gemini-2.5-flash-image"
	defaultGeminiFallbackModel     = "gemini-2.0-flash-preview-image-generation"
	defaultTelegramBaseURL         = "https://api.telegram.org"
	defaultTelegramPollTimeout     = 30
	defaultInitDataMaxAgeSeconds   = 86400
	defaultSessionTTLHours         = 72
	defaultYooKassaBaseURL         = "https://api.yookassa.ru/v3"
	defaultYooKassaProPrice        = "299.00"
	defaultYooKassaProDays         = 30
	defaultYooKassaCurrency        = "RUB"
	defaultFreeDaily               = 3
	defaultProDaily                = 50
	defaultFreePhotoDaily          = 0
	defaultProPhotoDaily           = 10
	defaultMinSlides               = 3
	defaultMaxSlides               = 15
	defaultSlides                  = 5
	defaultHistorySize             = 10
	defaultRenderConcurrency       = 2
	defaultRenderTimeoutSeconds    = 30
	defaultImageDelaySeconds       = 3
	defaultImageAttempts           = 2
	defaultFFmpegBin               = "ffmpeg"
	defaultPromoSecondsPerSlide    = 2.5
	defaultNotifyDedupWindowSecond = 600
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultOutputRetentionDays     = 14
	defaultWorkflowHeartbeat       = 15
	defaultWorkflowHeartbeatTTL    = 180
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,

			OutputRetentionDays: defaultOutputRetentionDays,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			FallbackModel:  defaultLLMFallbackModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Gemini: Gemini{
			ImageModel:         defaultGeminiImageModel,
			FallbackImageModel: defaultGeminiFallbackModel,
		},
		Telegram: Telegram{
			BaseURL:              defaultTelegramBaseURL,
			PollTimeout:          defaultTelegramPollTimeout,
			InitDataMaxAgeSecond: defaultInitDataMaxAgeSeconds,
		},
		Auth: Auth{
			SessionTTLHours: defaultSessionTTLHours,
		},
		YooKassa: YooKassa{
			BaseURL:  defaultYooKassaBaseURL,
			ProPrice: defaultYooKassaProPrice,
			ProDays:  defaultYooKassaProDays,
			Currency: defaultYooKassaCurrency,
		},
		Limits: Limits{
			FreeDaily:      defaultFreeDaily,
			ProDaily:       defaultProDaily,
			FreePhotoDaily: defaultFreePhotoDaily,
			ProPhotoDaily:  defaultProPhotoDaily,
			MinSlides:      defaultMinSlides,
			MaxSlides:      defaultMaxSlides,
			DefaultSlides:  defaultSlides,
			HistorySize:    defaultHistorySize,
		},
		Render: Render{
			Headless:       true,
			Concurrency:    defaultRenderConcurrency,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Pipeline: Pipeline{
			ImageDelaySeconds: defaultImageDelaySeconds,
			ImageAttempts:     defaultImageAttempts,
		},
		Promo: Promo{
			FFmpegBin:       defaultFFmpegBin,
			SecondsPerSlide: defaultPromoSecondsPerSlide,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Payments:           true,
			Failures:           true,
			Queue:              false,
			DedupWindowSeconds: defaultNotifyDedupWindowSecond,
		},
		Workflow: Workflow{
			QueuePollInterval:  2,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeat,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTTL,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
