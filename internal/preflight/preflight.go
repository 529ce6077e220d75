package preflight

import (
	"context"

	"swipely/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckChrome(cfg.Render.ChromeBin),
	}

	if llmCfg := cfg.GetLLM(); llmCfg.APIKey != "" {
		results = append(results, CheckLLM(ctx, "LLM", llmCfg))
	} else {
		results = append(results, CheckLLMKey(cfg))
	}

	if cfg.BotEnabled() {
		results = append(results, CheckTelegram(ctx, cfg.Telegram.BotToken, cfg.Telegram.BaseURL))
	}
	if cfg.PaymentsEnabled() {
		results = append(results, CheckYooKassa(cfg.YooKassa))
	}

	return results
}

// Failed filters results down to the failing checks.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
