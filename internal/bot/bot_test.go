package bot_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"swipely/internal/api"
	"swipely/internal/bot"
	"swipely/internal/config"
	"swipely/internal/i18n"
	"swipely/internal/services/telegram"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/testsupport"
	"swipely/internal/usage"
)

const adminID = 900

type sent struct {
	chatID int64
	text   string
	opts   telegram.SendOptions
}

type fakeAPI struct {
	mu       sync.Mutex
	messages []sent
	answers  []string
	actions  []string
	menus    []string
	updates  chan []telegram.Update
	offsets  []int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan []telegram.Update, 4)}
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch := <-f.updates:
		return batch, nil
	}
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{chatID: chatID, text: text, opts: opts})
	return &telegram.Message{MessageID: int64(len(f.messages)), Chat: telegram.Chat{ID: chatID}, Text: text}, nil
}

func (f *fakeAPI) SendChatAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAPI) SetMyCommands(_ context.Context, commands []telegram.BotCommand, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(commands) == 0 {
		return nil
	}
	f.menus = append(f.menus, lang)
	return nil
}

func (f *fakeAPI) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		t.Fatal("expected a message to be sent")
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fixture struct {
	cfg   *config.Config
	store *store.Store
	guard *usage.Guard
	api   *fakeAPI
	bot   *bot.Bot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBotToken("123:ABC"), testsupport.WithAdmins(adminID))
	cfg.Telegram.MiniAppURL = "https://app.example/"
	st := testsupport.MustOpenStore(t, cfg)
	catalog := templates.MustDefault()
	guard := usage.NewGuard(st, cfg.Limits)
	fake := newFakeAPI()
	b := bot.New(bot.Deps{
		Config:    cfg,
		API:       fake,
		Store:     st,
		Catalog:   catalog,
		Carousels: api.NewCarouselService(cfg, st, guard, catalog),
		Profiles:  api.NewProfileService(cfg, st, guard, catalog),
	})
	return &fixture{cfg: cfg, store: st, guard: guard, api: fake, bot: b}
}

func textUpdate(id, from int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: id,
		Message: &telegram.Message{
			MessageID: id,
			From:      &telegram.User{ID: from, FirstName: "Ann", LanguageCode: "en"},
			Chat:      telegram.Chat{ID: from, Type: "private"},
			Text:      text,
		},
	}
}

func (f *fixture) send(t *testing.T, from int64, text string) sent {
	t.Helper()
	f.bot.HandleUpdate(context.Background(), textUpdate(1, from, text))
	return f.api.last(t)
}

func TestPromptEnqueuesBotJob(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, 42, "Five habits of calm mornings")
	if !strings.Contains(reply.text, "Creating") || reply.chatID != 42 {
		t.Fatalf("unexpected reply %+v", reply)
	}
	jobs, err := f.store.ListForUser(context.Background(), 42, 10)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Source != store.SourceBot || job.ChatID != 42 || job.Language != "en" {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(f.api.actions) != 1 || f.api.actions[0] != "typing" {
		t.Fatalf("expected typing action, got %v", f.api.actions)
	}

	busy := f.send(t, 42, "Another topic")
	if busy.text != i18n.T("en", i18n.KeyBusy) {
		t.Fatalf("expected busy reply, got %q", busy.text)
	}
}

func TestPromptOverLimitRepliesWithQuota(t *testing.T) {
	f := newFixture(t)
	user := testsupport.NewUser(t, f.store, 43)
	for i := 0; i < f.cfg.Limits.FreeDaily; i++ {
		if _, err := f.guard.Consume(context.Background(), user, false); err != nil {
			t.Fatalf("Consume: %v", err)
		}
	}

	reply := f.send(t, 43, "One more please")
	want := i18n.T("en", i18n.KeyLimit, f.cfg.Limits.FreeDaily, f.cfg.Limits.FreeDaily)
	if reply.text != want {
		t.Fatalf("reply = %q, want %q", reply.text, want)
	}
}

func TestStartShowsMiniAppButton(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, 44, "/start")
	if !strings.Contains(reply.text, "Ann") {
		t.Fatalf("expected greeting by name, got %q", reply.text)
	}
	markup := reply.opts.ReplyMarkup
	if markup == nil || len(markup.InlineKeyboard) != 1 || markup.InlineKeyboard[0][0].WebApp == nil {
		t.Fatalf("expected web app button, got %+v", markup)
	}
	if markup.InlineKeyboard[0][0].WebApp.URL != "https://app.example/" {
		t.Fatalf("unexpected mini app url %q", markup.InlineKeyboard[0][0].WebApp.URL)
	}
}

func TestPreferenceCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if reply := f.send(t, 45, "/style@swipely_bot neon"); !strings.Contains(reply.text, "Neon") {
		t.Fatalf("unexpected style reply %q", reply.text)
	}
	if reply := f.send(t, 45, "/style nope"); reply.text != i18n.T("en", i18n.KeyStyleUnknown, "nope") {
		t.Fatalf("unexpected unknown-style reply %q", reply.text)
	}
	f.send(t, 45, "/format stories")
	if reply := f.send(t, 45, "/slides 99"); !strings.HasPrefix(reply.text, "Usage: /slides") {
		t.Fatalf("expected slides usage, got %q", reply.text)
	}
	f.send(t, 45, "/slides 8")
	if reply := f.send(t, 45, "/photo on"); reply.text != i18n.T("en", i18n.KeyPhotoForbidden) {
		t.Fatalf("expected photo forbidden, got %q", reply.text)
	}

	user, err := f.store.GetUser(ctx, 45)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Style != "neon" || string(user.Format) != "stories" || user.SlideCount != 8 || user.PhotoMode {
		t.Fatalf("unexpected preferences %+v", user)
	}
}

func TestStyleCallbackUpdatesPreference(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleUpdate(context.Background(), telegram.Update{
		UpdateID: 7,
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb-1",
			From:    telegram.User{ID: 46, LanguageCode: "ru"},
			Message: &telegram.Message{Chat: telegram.Chat{ID: 46}},
			Data:    "style:retro",
		},
	})
	if len(f.api.answers) != 1 || !strings.Contains(f.api.answers[0], "Стиль") {
		t.Fatalf("expected localized callback answer, got %v", f.api.answers)
	}
	user, err := f.store.GetUser(context.Background(), 46)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Style != "retro" {
		t.Fatalf("style = %q, want retro", user.Style)
	}
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)

	if reply := f.send(t, 47, "/stats"); reply.text != i18n.T("en", i18n.KeyAdminOnly) {
		t.Fatalf("expected admin-only reply, got %q", reply.text)
	}
	testsupport.NewUser(t, f.store, 48)
	if reply := f.send(t, adminID, "/grant 48 30"); !strings.Contains(reply.text, "User 48 is Pro until") {
		t.Fatalf("unexpected grant reply %q", reply.text)
	}
	user, err := f.store.GetUser(context.Background(), 48)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.EffectiveTier(time.Now()) != store.TierPro {
		t.Fatalf("expected pro tier after grant, got %+v", user)
	}
	if reply := f.send(t, adminID, "/grant 48"); reply.text != i18n.T("en", i18n.KeyGrantUsage) {
		t.Fatalf("expected grant usage, got %q", reply.text)
	}
	if reply := f.send(t, adminID, "/stats"); !strings.Contains(reply.text, "1 pro") {
		t.Fatalf("unexpected stats %q", reply.text)
	}
	if reply := f.send(t, adminID, "/help"); !strings.Contains(reply.text, "/grant") {
		t.Fatalf("expected admin help, got %q", reply.text)
	}
}

func TestProWithoutPaymentsIsDisabled(t *testing.T) {
	f := newFixture(t)
	if reply := f.send(t, 49, "/pro"); reply.text != i18n.T("en", i18n.KeyProDisabled) {
		t.Fatalf("unexpected reply %q", reply.text)
	}
}

func TestNotifyFailureUsesJobLanguage(t *testing.T) {
	f := newFixture(t)
	job := &store.Job{ID: 3, ChatID: 50, Language: "ru"}
	if err := f.bot.NotifyFailure(context.Background(), job, "тест"); err != nil {
		t.Fatalf("NotifyFailure: %v", err)
	}
	msg := f.api.last(t)
	if msg.chatID != 50 || msg.text != i18n.T("ru", i18n.KeyJobFailed, "тест") {
		t.Fatalf("unexpected failure message %+v", msg)
	}

	before := f.api.count()
	if err := f.bot.NotifyFailure(context.Background(), &store.Job{ID: 4}, "x"); err != nil {
		t.Fatalf("NotifyFailure without chat: %v", err)
	}
	if f.api.count() != before {
		t.Fatal("web jobs should not produce chat messages")
	}
}

func TestPollerAdvancesOffset(t *testing.T) {
	f := newFixture(t)
	if err := f.bot.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.bot.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	f.api.updates <- []telegram.Update{textUpdate(10, 51, "/help")}

	deadline := time.Now().Add(2 * time.Second)
	for f.api.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	for time.Now().Before(deadline) {
		f.api.mu.Lock()
		n := len(f.api.offsets)
		last := int64(0)
		if n > 0 {
			last = f.api.offsets[n-1]
		}
		f.api.mu.Unlock()
		if last == 11 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	f.bot.Stop()

	if f.bot.Running() {
		t.Fatal("expected bot stopped")
	}
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	if len(f.api.messages) != 1 {
		t.Fatalf("expected one reply, got %d", len(f.api.messages))
	}
	if got := f.api.offsets[len(f.api.offsets)-1]; got != 11 {
		t.Fatalf("expected offset 11 after update 10, got %d", got)
	}
	if len(f.api.menus) != 2 {
		t.Fatalf("expected command menus for two languages, got %v", f.api.menus)
	}
}
