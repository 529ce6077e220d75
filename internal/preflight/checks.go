package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"golang.org/x/sys/unix"

	"swipely/internal/config"
	"swipely/internal/deps"
	"swipely/internal/services/llm"
	"swipely/internal/services/telegram"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckLLMKey reports whether slide text generation is configured without
// spending a request.
func CheckLLMKey(cfg *config.Config) Result {
	const name = "LLM"
	llmCfg := cfg.GetLLM()
	if llmCfg.APIKey == "" {
		return Result{Name: name, Detail: "missing llm.api_key"}
	}
	return Result{Name: name, Passed: true, Detail: llmCfg.Model}
}

// CheckTelegram calls getMe to verify the bot token.
func CheckTelegram(ctx context.Context, token, baseURL string) Result {
	const name = "Telegram bot"

	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing bot token"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	me, err := telegram.NewClient(token, baseURL, nil).GetMe(checkCtx)
	if err != nil {
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 401 {
			return Result{Name: name, Detail: "auth failed (invalid bot token)"}
		}
		return Result{Name: name, Detail: summarizeNetError("Bot API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "@" + me.Username}
}

// CheckYooKassa verifies that payment credentials are present.
func CheckYooKassa(cfg config.YooKassa) Result {
	const name = "YooKassa"
	switch {
	case strings.TrimSpace(cfg.ShopID) == "":
		return Result{Name: name, Detail: "missing shop_id"}
	case strings.TrimSpace(cfg.SecretKey) == "":
		return Result{Name: name, Detail: "missing secret_key"}
	case strings.TrimSpace(cfg.ReturnURL) == "":
		return Result{Name: name, Detail: "missing return_url"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("shop %s, %s %s / %d days", cfg.ShopID, cfg.ProPrice, cfg.Currency, cfg.ProDays)}
}

// CheckChrome locates the browser used for PNG export. An empty chromeBin
// falls back to the browsers rod knows how to find.
func CheckChrome(chromeBin string) Result {
	const name = "Chrome"
	if bin := strings.TrimSpace(chromeBin); bin != "" {
		info, err := os.Stat(bin)
		if err != nil || info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s not found", bin)}
		}
		return Result{Name: name, Passed: true, Detail: bin}
	}
	if path, ok := launcher.LookPath(); ok {
		return Result{Name: name, Passed: true, Detail: path}
	}
	return Result{Name: name, Detail: "no Chrome or Chromium found; set render.chrome_bin"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	chrome := strings.TrimSpace(cfg.Render.ChromeBin)
	if chrome == "" {
		if path, ok := launcher.LookPath(); ok {
			chrome = path
		}
	}
	requirements := []deps.Requirement{
		{
			Name:        "Chrome",
			Command:     chrome,
			Description: "Required for slide PNG export",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Promo.FFmpegBin,
			Description: "Required for promo videos",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetError(service string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", service)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", service)
	}
	return err.Error()
}
