package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"swipely/internal/api"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/payments"
	"swipely/internal/services/telegram"
	"swipely/internal/store"
	"swipely/internal/templates"
)

// API is the subset of the Bot API the bot uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand, languageCode string) error
}

// Deps are the bot's collaborators. Payments may be nil.
type Deps struct {
	Config    *config.Config
	API       API
	Store     *store.Store
	Catalog   *templates.Catalog
	Carousels *api.CarouselService
	Profiles  *api.ProfileService
	Payments  *payments.Service
	Logger    *slog.Logger
}

// Bot polls Telegram and answers users.
type Bot struct {
	cfg       *config.Config
	api       API
	store     *store.Store
	catalog   *templates.Catalog
	carousels *api.CarouselService
	profiles  *api.ProfileService
	payments  *payments.Service
	logger    *slog.Logger

	pollTimeout time.Duration
	retryDelay  time.Duration

	mu      sync.Mutex
	running bool
	offset  int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a bot.
func New(deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(deps.Config.Telegram.PollTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bot{
		cfg:         deps.Config,
		api:         deps.API,
		store:       deps.Store,
		catalog:     deps.Catalog,
		carousels:   deps.Carousels,
		profiles:    deps.Profiles,
		payments:    deps.Payments,
		logger:      logging.NewComponentLogger(logger, "bot"),
		pollTimeout: timeout,
		retryDelay:  5 * time.Second,
	}
}

// Start registers the command menu and begins polling.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return errors.New("bot already running")
	}
	b.registerCommands(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true
	b.wg.Add(1)
	go b.loop(runCtx)
	b.logger.Info("telegram bot polling", logging.Duration("poll_timeout", b.pollTimeout))
	return nil
}

// Stop ends polling and waits for the update in progress.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// Running reports whether the poller is active.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bot) loop(ctx context.Context) {
	defer b.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.api.GetUpdates(ctx, b.offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := b.retryDelay
			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				delay = apiErr.RetryAfter
			}
			b.logger.Warn("telegram polling failed; will retry",
				logging.Error(err),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldEventType, "bot_poll_failed"),
				logging.String(logging.FieldErrorHint, "check telegram.bot_token and network access to the Bot API"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= b.offset {
				b.offset = update.UpdateID + 1
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) registerCommands(ctx context.Context) {
	for _, lang := range []string{"", "ru"} {
		if err := b.api.SetMyCommands(ctx, commandMenu(lang), lang); err != nil {
			logging.WarnWithContext(b.logger, "command menu not registered", "bot_commands_failed",
				logging.Error(err),
				logging.String("language", lang),
				logging.String(logging.FieldImpact, "command hints missing in clients"),
			)
		}
	}
}

// HandleUpdate dispatches one update. A panic in a handler is logged and
// does not stop the poller.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("update handler panicked",
				logging.Any("panic", rec),
				logging.Int64("update_id", update.UpdateID),
				logging.Alert("bot_panic"),
			)
		}
	}()
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}
