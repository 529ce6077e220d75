package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/i18n"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/services/telegram"
	"swipely/internal/stage"
	"swipely/internal/store"
)

const stageDelivering = "delivering"

// Messenger sends results to a Telegram chat.
type Messenger interface {
	SendAlbum(ctx context.Context, chatID int64, photos []telegram.Photo) error
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
}

// Deliverer hands rendered slides to the user. Bot jobs receive their slides
// as Telegram albums; web and CLI jobs are fetched through the API.
type Deliverer struct {
	cfg    *config.Config
	bot    Messenger
	logger *slog.Logger
}

// NewDeliverer constructs the delivery stage. bot may be nil when the
// Telegram bot is disabled.
func NewDeliverer(cfg *config.Config, bot Messenger, logger *slog.Logger) *Deliverer {
	d := &Deliverer{cfg: cfg, bot: bot}
	d.SetLogger(logger)
	return d
}

// SetLogger swaps the stage logger.
func (d *Deliverer) SetLogger(logger *slog.Logger) {
	d.logger = logging.NewComponentLogger(loggerOrNop(logger), "deliverer")
}

func (d *Deliverer) Prepare(ctx context.Context, job *store.Job) error {
	job.InitProgress("Delivering", "Delivering carousel")
	return nil
}

func (d *Deliverer) Execute(ctx context.Context, job *store.Job) error {
	logger := logging.WithContext(ctx, d.logger)
	paths := SlidePaths(job.OutputDir)
	if len(paths) == 0 {
		return services.Wrap(services.ErrValidation, stageDelivering, "collect slides",
			"No rendered slides found; retry the job to render again", nil)
	}

	if job.Source != store.SourceBot || job.ChatID == 0 {
		job.SetProgress("Completed", fmt.Sprintf("%d slides ready", len(paths)), 100)
		logger.Info("carousel ready for download", logging.Int("slides", len(paths)))
		return nil
	}
	if d.bot == nil {
		return services.Wrap(services.ErrConfiguration, stageDelivering, "send album",
			"Telegram bot is not configured; cannot deliver bot job", nil)
	}

	photos := make([]telegram.Photo, len(paths))
	for i, path := range paths {
		photos[i] = telegram.Photo{Path: path}
	}
	if slides, err := job.Slides(); err == nil && len(slides) > 0 {
		photos[0].Caption = carousel.PlainText(slides[0].Title)
	}

	if err := d.bot.SendAlbum(ctx, job.ChatID, photos); err != nil {
		if telegram.IsBlocked(err) {
			logging.WarnWithContext(logger, "user blocked the bot; delivery skipped", "delivery_blocked",
				logging.Int64("chat_id", job.ChatID),
				logging.String(logging.FieldImpact, "slides remain available in the Mini App"),
			)
			job.SetProgress("Completed", "Delivery skipped: bot blocked by user", 100)
			return nil
		}
		return services.Wrap(services.ErrExternalTool, stageDelivering, "send album", "Telegram upload failed", err)
	}

	opts := telegram.SendOptions{ReplyMarkup: d.editKeyboard(job)}
	if _, err := d.bot.SendMessage(ctx, job.ChatID, i18n.T(job.Language, i18n.KeyDelivered, len(paths)), opts); err != nil {
		logger.Warn("delivery follow-up failed", logging.Error(err))
	}
	job.SetProgress("Completed", fmt.Sprintf("%d slides sent", len(paths)), 100)
	logger.Info("carousel delivered", logging.Int("slides", len(paths)), logging.Int64("chat_id", job.ChatID))
	return nil
}

func (d *Deliverer) editKeyboard(job *store.Job) *telegram.InlineKeyboardMarkup {
	if d.cfg == nil || strings.TrimSpace(d.cfg.Telegram.MiniAppURL) == "" {
		return nil
	}
	target, err := url.Parse(d.cfg.Telegram.MiniAppURL)
	if err != nil {
		return nil
	}
	query := target.Query()
	query.Set("job", strconv.FormatInt(job.ID, 10))
	target.RawQuery = query.Encode()
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
		{Text: i18n.T(job.Language, i18n.KeyEditButton), WebApp: &telegram.WebAppInfo{URL: target.String()}},
	}}}
}

func (d *Deliverer) HealthCheck(context.Context) stage.Health {
	if d.cfg != nil && d.cfg.BotEnabled() && d.bot == nil {
		return stage.Unhealthy(stageDelivering, "bot token set but Telegram client missing")
	}
	return stage.Healthy(stageDelivering)
}
