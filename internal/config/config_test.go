package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"swipely/internal/config"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "TELEGRAM_BOT_TOKEN",
		"SWIPELY_JWT_SECRET", "SWIPELY_API_TOKEN", "YOOKASSA_SHOP_ID", "YOOKASSA_SECRET_KEY", config.ConfigEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "swipely")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "swipely.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:8787" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Limits.FreeDaily != 3 || cfg.Limits.FreePhotoDaily != 0 {
		t.Fatalf("unexpected free limits: %+v", cfg.Limits)
	}
	if cfg.Limits.MinSlides != 3 || cfg.Limits.MaxSlides != 15 {
		t.Fatalf("unexpected slide bounds: %+v", cfg.Limits)
	}
	if cfg.PaymentsEnabled() {
		t.Fatal("expected payments disabled without credentials")
	}
	if cfg.BotEnabled() {
		t.Fatal("expected bot disabled without token")
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearSecretEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "swipely.toml")

	type payload struct {
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Limits struct {
			ProDaily int `toml:"pro_daily"`
		} `toml:"limits"`
		Telegram struct {
			AdminIDs []int64 `toml:"admin_ids"`
		} `toml:"telegram"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "openai/gpt-4o"
	custom.Limits.ProDaily = 99
	custom.Telegram.AdminIDs = []int64{42}
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected LLM key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "openai/gpt-4o" {
		t.Fatalf("expected model override, got %q", cfg.LLM.Model)
	}
	if cfg.Limits.ProDaily != 99 {
		t.Fatalf("expected pro daily 99, got %d", cfg.Limits.ProDaily)
	}
	if cfg.Limits.FreeDaily != 3 {
		t.Fatalf("expected untouched default free daily, got %d", cfg.Limits.FreeDaily)
	}
	if !cfg.IsAdmin(42) || cfg.IsAdmin(7) {
		t.Fatalf("unexpected admin resolution for %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Workflow.HeartbeatInterval != 20 || cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("unexpected heartbeat settings: %+v", cfg.Workflow)
	}
}

func TestLoadUsesConfigEnv(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "from-env.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \"env-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.ConfigEnv, path)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path || cfg.LLM.APIKey != "env-file" {
		t.Fatalf("expected %s to be loaded, got %q exists=%v key=%q", path, resolved, exists, cfg.LLM.APIKey)
	}
}

func TestLoadReportsParsePosition(t *testing.T) {
	clearSecretEnv(t)
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "broken.toml:2:") {
		t.Fatalf("expected parse error with position, got %v", err)
	}
}

func TestEnvVarOverridesConfigFileForSecrets(t *testing.T) {
	clearSecretEnv(t)
	configPath := filepath.Join(t.TempDir(), "swipely.toml")
	contents := `
[llm]
api_key = "file-llm"
[telegram]
bot_token = "file-bot"
[auth]
jwt_secret = "file-secret-0123456789"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENROUTER_API_KEY", "env-llm")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-bot")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Telegram.BotToken != "env-bot" {
		t.Errorf("expected bot token from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Auth.JWTSecret != "file-secret-0123456789" {
		t.Errorf("expected jwt secret from file, got %q", cfg.Auth.JWTSecret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "OPENROUTER_API_KEY") {
		t.Fatalf("sample config missing env hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "swipely") {
		t.Fatalf("expected data dir to contain swipely, got %q", cfg.Paths.DataDir)
	}
	if cfg.Limits.HistorySize != 10 {
		t.Fatalf("expected history size 10, got %d", cfg.Limits.HistorySize)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"heartbeat interval":  func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 },
		"timeout <= interval": func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval },
		"slide bounds":        func(c *config.Config) { c.Limits.MaxSlides = 2 },
		"default outside":     func(c *config.Config) { c.Limits.DefaultSlides = 20 },
		"negative quota":      func(c *config.Config) { c.Limits.FreeDaily = -1 },
		"price":               func(c *config.Config) { c.YooKassa.ProPrice = "free" },
		"shop without secret": func(c *config.Config) { c.YooKassa.ShopID = "123" },
		"render concurrency":  func(c *config.Config) { c.Render.Concurrency = 64 },
		"image attempts":      func(c *config.Config) { c.Pipeline.ImageAttempts = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateServeRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error without llm key")
	}
	cfg.LLM.APIKey = "key"
	cfg.Telegram.BotToken = "token"
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error when bot enabled without jwt secret")
	}
	cfg.Auth.JWTSecret = "short"
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error for short jwt secret")
	}
	cfg.Auth.JWTSecret = "0123456789abcdef0123"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
