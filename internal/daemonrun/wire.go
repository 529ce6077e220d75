package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"swipely/internal/api"
	"swipely/internal/bot"
	"swipely/internal/config"
	"swipely/internal/daemon"
	"swipely/internal/logging"
	"swipely/internal/miniapp"
	"swipely/internal/notifications"
	"swipely/internal/payments"
	"swipely/internal/pipeline"
	"swipely/internal/render"
	"swipely/internal/services/gemini"
	"swipely/internal/services/llm"
	"swipely/internal/services/telegram"
	"swipely/internal/services/yookassa"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/usage"
	"swipely/internal/webapi"
	"swipely/internal/workflow"
)

// Runtime is the assembled daemon with the resources it owns.
type Runtime struct {
	Daemon   *daemon.Daemon
	Workflow *workflow.Manager
	Bot      *bot.Bot
	Payments *payments.Service
	Handler  http.Handler

	renderer *render.Renderer
}

// Close stops the daemon and the headless browser.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.Daemon != nil {
		err = r.Daemon.Close()
	}
	if r.renderer != nil {
		if closeErr := r.renderer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Build wires every component against an open store. Optional integrations
// (bot, payments, image generation) stay off when their credentials are
// missing.
func Build(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil || st == nil {
		return nil, fmt.Errorf("config and store are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	catalog, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	notifier := notifications.NewService(cfg)
	guard := usage.NewGuard(st, cfg.Limits)
	carousels := api.NewCarouselService(cfg, st, guard, catalog)
	profiles := api.NewProfileService(cfg, st, guard, catalog)
	jobs := api.NewJobService(st)

	var tg *telegram.Client
	if cfg.BotEnabled() {
		tg = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.BaseURL, nil)
	}

	var messenger pipeline.Messenger
	if tg != nil {
		messenger = tg
	}
	stages, renderer := Stages(ctx, cfg, st, catalog, messenger, logger)

	var pay *payments.Service
	if cfg.PaymentsEnabled() {
		opts := []payments.Option{payments.WithNotifier(notifier), payments.WithLogger(logger)}
		if tg != nil {
			opts = append(opts, payments.WithMessenger(tg))
		}
		pay = payments.NewService(cfg.YooKassa, yookassa.NewClient(cfg.YooKassa, nil), st, opts...)
	}

	managerOpts := []workflow.ManagerOption{workflow.WithNotifier(notifier), workflow.WithRefunder(guard)}
	var daemonOpts []daemon.Option
	var poller *bot.Bot
	if tg != nil {
		poller = bot.New(bot.Deps{
			Config:    cfg,
			API:       tg,
			Store:     st,
			Catalog:   catalog,
			Carousels: carousels,
			Profiles:  profiles,
			Payments:  pay,
			Logger:    logger,
		})
		managerOpts = append(managerOpts, workflow.WithFailureMessenger(poller))
		daemonOpts = append(daemonOpts, daemon.WithBot(poller))
	}

	manager := workflow.NewManager(cfg, st, logger, managerOpts...)
	manager.ConfigureStages(stages)

	var sessions *miniapp.Sessions
	if cfg.BotEnabled() {
		sessions, err = miniapp.NewSessions(cfg.Auth)
		if err != nil {
			renderer.Close()
			return nil, fmt.Errorf("mini app sessions: %w", err)
		}
	}

	d, err := daemon.New(cfg, st, logger, manager, daemonOpts...)
	if err != nil {
		renderer.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}

	handler := webapi.NewServer(webapi.Deps{
		Config:    cfg,
		Store:     st,
		Catalog:   catalog,
		Carousels: carousels,
		Profiles:  profiles,
		Jobs:      jobs,
		Sessions:  sessions,
		Payments:  pay,
		Status:    d,
		Logger:    logger,
	}).Handler()
	d.SetHandler(handler)

	return &Runtime{
		Daemon:   d,
		Workflow: manager,
		Bot:      poller,
		Payments: pay,
		Handler:  handler,
		renderer: renderer,
	}, nil
}

// Stages builds the pipeline handlers shared by the daemon and one-shot CLI
// runs. The caller closes the returned renderer.
func Stages(ctx context.Context, cfg *config.Config, st *store.Store, catalog *templates.Catalog, messenger pipeline.Messenger, logger *slog.Logger) (workflow.StageSet, *render.Renderer) {
	var images pipeline.ImageGenerator
	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		client, err := gemini.NewClient(ctx, gemini.ConfigFrom(cfg))
		if err != nil {
			logging.WarnWithContext(logger, "gemini client unavailable; photo slides use placeholders", "gemini_init_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check gemini.api_key and gemini.image_model"),
			)
		} else {
			images = client
		}
	}

	llmClient := llm.NewClient(llm.ConfigFrom(cfg.GetLLM()))
	renderer := render.New(render.OptionsFromConfig(cfg), logger)
	return workflow.StageSet{
		Writer:      pipeline.NewWriter(cfg, st, llmClient, catalog, logger),
		Describer:   pipeline.NewDescriber(st, llmClient, logger),
		Illustrator: pipeline.NewIllustrator(cfg, st, images, catalog, logger),
		Exporter:    pipeline.NewExporter(cfg, st, renderer, catalog, logger),
		Deliverer:   pipeline.NewDeliverer(cfg, messenger, logger),
	}, renderer
}
