package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"swipely/internal/carousel"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"finish_reason": "stop",
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func decodeRequest(t *testing.T, r *http.Request) chatCompletionRequest {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read request: %v", err)
	}
	var req chatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return req
}

func quietClient(url string, cfg Config) *Client {
	cfg.APIKey = "test"
	cfg.BaseURL = url
	if cfg.Model == "" {
		cfg.Model = "demo-model"
	}
	return NewClient(cfg, WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {}), WithRetryMaxAttempts(2))
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "Swipely" {
			t.Errorf("unexpected title header %q", got)
		}
		writeCompletion(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "Swipely"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestHealthCheckRequiresKey(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGenerateCarouselTrimsExtraSlides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("expected json response format, got %v", req.ResponseFormat)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Language: Russian") {
			t.Errorf("expected russian language in user prompt, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "exactly 3") {
			t.Errorf("expected slide count in prompt, got %q", req.Messages[1].Content)
		}
		writeCompletion(t, w, `Here you go:
{"slides":[
 {"type":"hook","title":"Stop <hl>scrolling</hl>","content":"Read this"},
 {"type":"content","title":"One","content":"First idea"},
 {"type":"content","title":"Two","content":"Second idea"},
 {"type":"cta","title":"Save it","content":"Follow for more"}
]}`)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{})
	slides, err := client.GenerateCarousel(context.Background(), CarouselRequest{Prompt: "  habits  ", SlideCount: 3, Language: "ru"})
	if err != nil {
		t.Fatalf("GenerateCarousel returned error: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	if slides[0].Type != carousel.SlideHook || slides[2].Type != carousel.SlideCTA {
		t.Fatalf("unexpected slide types: %s, %s", slides[0].Type, slides[2].Type)
	}
	if slides[2].Title != "Two" {
		t.Fatalf("expected trimmed tail, got %q", slides[2].Title)
	}
}

func TestGenerateCarouselTooFewSlides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, `{"slides":[{"title":"Only one","content":"x"}]}`)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{})
	_, err := client.GenerateCarousel(context.Background(), CarouselRequest{Prompt: "habits", SlideCount: 5})
	if !errors.Is(err, ErrTooFewSlides) {
		t.Fatalf("expected ErrTooFewSlides, got %v", err)
	}
}

func TestGenerateCarouselFallsBackOnce(t *testing.T) {
	var mu sync.Mutex
	models := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		mu.Lock()
		models = append(models, req.Model)
		mu.Unlock()
		if req.Model == "primary" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"model unavailable"}}`))
			return
		}
		writeCompletion(t, w, `[{"title":"A","content":"a"},{"title":"B","content":"b"},{"title":"C","content":"c"}]`)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{Model: "primary", FallbackModel: "backup"})
	slides, err := client.GenerateCarousel(context.Background(), CarouselRequest{Prompt: "habits", SlideCount: 3})
	if err != nil {
		t.Fatalf("GenerateCarousel returned error: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	// 400 is not retried, so the primary is called once.
	if strings.Join(models, ",") != "primary,backup" {
		t.Fatalf("unexpected model sequence %v", models)
	}
}

func TestGenerateCarouselRejectsEmptyPrompt(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo"})
	if _, err := client.GenerateCarousel(context.Background(), CarouselRequest{Prompt: "   "}); !errors.Is(err, carousel.ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestDescribeScenes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		user := req.Messages[1].Content
		if !strings.Contains(user, "Main character: a red fox") {
			t.Errorf("expected character hint, got %q", user)
		}
		if strings.Contains(user, "<hl>") {
			t.Errorf("expected highlight markup stripped, got %q", user)
		}
		writeCompletion(t, w, `{"scenes":["fox at dawn","fox reading","fox waving"]}`)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{})
	scenes, err := client.DescribeScenes(context.Background(), []carousel.Slide{
		{Title: "Stop <hl>scrolling</hl>"}, {Title: "Read"}, {Title: "Follow"},
	}, "a red fox")
	if err != nil {
		t.Fatalf("DescribeScenes returned error: %v", err)
	}
	if len(scenes) != 3 || scenes[1] != "fox reading" {
		t.Fatalf("unexpected scenes %v", scenes)
	}
}

func TestDescribeScenesCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, `{"scenes":["only one"]}`)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{})
	_, err := client.DescribeScenes(context.Background(), []carousel.Slide{{Title: "a"}, {Title: "b"}}, "")
	if !errors.Is(err, ErrSceneCount) {
		t.Fatalf("expected ErrSceneCount, got %v", err)
	}
}

func TestClientToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{"function": map[string]any{"arguments": `{"ok":true}`}},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := quietClient(server.URL, Config{})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeCompletion(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"ok":true}`
		}
		writeCompletion(t, w, content)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	cases := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 4: 5 * time.Second, 9: 5 * time.Second}
	for attempt, want := range cases {
		if got := client.backoffDelay(attempt); got != want {
			t.Fatalf("attempt %d: got %v want %v", attempt, got, want)
		}
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	cases := map[string]string{
		"plain":        `{"ok":true}`,
		"fence":        "```json\n{\"ok\":true}\n```",
		"bare fence":   "```\n{\"ok\":true}\n```",
		"prose":        `Sure! {"ok":true} Hope this helps.`,
		"prose fenced": "Result:\n```json\n{\"ok\":true}\n```\nthanks",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var out struct {
				OK bool `json:"ok"`
			}
			if err := DecodeLLMJSON(input, &out); err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if !out.OK {
				t.Fatal("expected ok=true")
			}
		})
	}
	var out map[string]any
	if err := DecodeLLMJSON("no json here", &out); err == nil || !strings.Contains(err.Error(), "snippet") {
		t.Fatalf("expected snippet in error, got %v", err)
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{"ru": "Russian", "en-US": "English", "": "English", "???": "English", "de": "German"}
	for code, want := range cases {
		if got := languageName(code); got != want {
			t.Fatalf("languageName(%q) = %q, want %q", code, got, want)
		}
	}
}
