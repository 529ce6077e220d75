package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"swipely/internal/api"
	"swipely/internal/carousel"
	"swipely/internal/i18n"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/services/telegram"
	"swipely/internal/store"
)

const styleCallbackPrefix = "style:"

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		b.logger.Error("register telegram user failed",
			logging.Error(err),
			logging.Int64(logging.FieldUserID, msg.From.ID),
		)
		b.reply(ctx, msg.Chat.ID, i18n.T(msg.From.LanguageCode, i18n.KeyGenericError), telegram.SendOptions{})
		return
	}
	ctx = services.WithUserID(ctx, user.TelegramID)

	command, args, ok := parseCommand(msg.Text)
	if !ok {
		b.handlePrompt(ctx, msg.Chat.ID, user, msg.Text)
		return
	}
	switch command {
	case "start":
		b.cmdStart(ctx, msg.Chat.ID, user)
	case "help":
		b.cmdHelp(ctx, msg.Chat.ID, user)
	case "styles":
		b.cmdStyles(ctx, msg.Chat.ID, user)
	case "style":
		b.cmdStyle(ctx, msg.Chat.ID, user, args)
	case "format":
		b.cmdFormat(ctx, msg.Chat.ID, user, args)
	case "slides":
		b.cmdSlides(ctx, msg.Chat.ID, user, args)
	case "photo":
		b.cmdPhoto(ctx, msg.Chat.ID, user, args)
	case "status":
		b.cmdStatus(ctx, msg.Chat.ID, user)
	case "history":
		b.cmdHistory(ctx, msg.Chat.ID, user)
	case "pro":
		b.cmdPro(ctx, msg.Chat.ID, user)
	case "stats":
		b.cmdStats(ctx, msg.Chat.ID, user)
	case "grant":
		b.cmdGrant(ctx, msg.Chat.ID, user, args)
	default:
		b.cmdHelp(ctx, msg.Chat.ID, user)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	if query.From.ID == 0 {
		return
	}
	user, err := b.ensureUser(ctx, &query.From)
	if err != nil {
		b.answer(ctx, query.ID, "")
		return
	}
	styleID, ok := strings.CutPrefix(query.Data, styleCallbackPrefix)
	if !ok {
		b.answer(ctx, query.ID, "")
		return
	}
	text := b.setStyle(ctx, user, styleID)
	b.answer(ctx, query.ID, text)
	if query.Message != nil {
		b.reply(ctx, query.Message.Chat.ID, text, telegram.SendOptions{})
	}
}

// parseCommand splits "/cmd@bot arg1 arg2". Non-command text returns ok=false.
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name), fields[1:], true
}

func (b *Bot) ensureUser(ctx context.Context, from *telegram.User) (*store.User, error) {
	return b.store.EnsureUser(ctx, store.Profile{
		TelegramID: from.ID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		Language:   i18n.Code(from.LanguageCode),
	})
}

func (b *Bot) cmdStart(ctx context.Context, chatID int64, user *store.User) {
	format := user.Format
	if format == "" {
		format = carousel.FormatSquare
	}
	slides := user.SlideCount
	if slides <= 0 {
		slides = b.cfg.Limits.DefaultSlides
	}
	style := b.catalog.Get(firstNonEmpty(user.Style, b.catalog.DefaultID()))
	name := firstNonEmpty(user.FirstName, user.Username, "there")
	text := i18n.T(user.Language, i18n.KeyStart, name, style.Name, string(format), slides)

	opts := telegram.SendOptions{}
	if url := strings.TrimSpace(b.cfg.Telegram.MiniAppURL); url != "" {
		opts.ReplyMarkup = &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: i18n.T(user.Language, i18n.KeyOpenButton), WebApp: &telegram.WebAppInfo{URL: url}},
		}}}
	}
	b.reply(ctx, chatID, text, opts)
}

func (b *Bot) cmdHelp(ctx context.Context, chatID int64, user *store.User) {
	text := i18n.T(user.Language, i18n.KeyHelp)
	if b.cfg.IsAdmin(user.TelegramID) {
		text += i18n.T(user.Language, i18n.KeyHelpAdmin)
	}
	b.reply(ctx, chatID, text, telegram.SendOptions{})
}

func (b *Bot) cmdStyles(ctx context.Context, chatID int64, user *store.User) {
	styles := b.catalog.List()
	lines := []string{i18n.T(user.Language, i18n.KeyStylesHeader)}
	rows := make([][]telegram.InlineKeyboardButton, 0, (len(styles)+1)/2)
	for i, style := range styles {
		lines = append(lines, fmt.Sprintf("• %s (%s) %s", style.Name, style.ID, style.Description))
		button := telegram.InlineKeyboardButton{Text: style.Name, CallbackData: styleCallbackPrefix + style.ID}
		if i%2 == 0 {
			rows = append(rows, []telegram.InlineKeyboardButton{button})
		} else {
			rows[len(rows)-1] = append(rows[len(rows)-1], button)
		}
	}
	b.reply(ctx, chatID, strings.Join(lines, "\n"), telegram.SendOptions{
		ReplyMarkup: &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

func (b *Bot) cmdStyle(ctx context.Context, chatID int64, user *store.User, args []string) {
	if len(args) == 0 {
		b.cmdStyles(ctx, chatID, user)
		return
	}
	b.reply(ctx, chatID, b.setStyle(ctx, user, strings.ToLower(args[0])), telegram.SendOptions{})
}

func (b *Bot) setStyle(ctx context.Context, user *store.User, styleID string) string {
	style, ok := b.catalog.Lookup(styleID)
	if !ok {
		return i18n.T(user.Language, i18n.KeyStyleUnknown, styleID)
	}
	if _, err := b.profiles.UpdatePreferences(ctx, user, api.PreferenceUpdate{Style: &style.ID}); err != nil {
		return b.errorText(ctx, user, err)
	}
	return i18n.T(user.Language, i18n.KeyStyleSet, style.Name)
}

func (b *Bot) cmdFormat(ctx context.Context, chatID int64, user *store.User, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyFormatUsage), telegram.SendOptions{})
		return
	}
	format, ok := carousel.ParseFormat(args[0])
	if !ok {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyFormatUsage), telegram.SendOptions{})
		return
	}
	value := string(format)
	if _, err := b.profiles.UpdatePreferences(ctx, user, api.PreferenceUpdate{Format: &value}); err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyFormatSet, value), telegram.SendOptions{})
}

func (b *Bot) cmdSlides(ctx context.Context, chatID int64, user *store.User, args []string) {
	usage := i18n.T(user.Language, i18n.KeySlidesUsage, b.cfg.Limits.MinSlides, b.cfg.Limits.MaxSlides)
	if len(args) == 0 {
		b.reply(ctx, chatID, usage, telegram.SendOptions{})
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(ctx, chatID, usage, telegram.SendOptions{})
		return
	}
	if _, err := b.profiles.UpdatePreferences(ctx, user, api.PreferenceUpdate{SlideCount: &n}); err != nil {
		if errors.Is(err, services.ErrValidation) {
			b.reply(ctx, chatID, usage, telegram.SendOptions{})
			return
		}
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeySlidesSet, n), telegram.SendOptions{})
}

func (b *Bot) cmdPhoto(ctx context.Context, chatID int64, user *store.User, args []string) {
	var on bool
	switch {
	case len(args) == 0:
		on = !user.PhotoMode
	case strings.EqualFold(args[0], "on"):
		on = true
	case strings.EqualFold(args[0], "off"):
		on = false
	default:
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyPhotoUsage), telegram.SendOptions{})
		return
	}
	if _, err := b.profiles.UpdatePreferences(ctx, user, api.PreferenceUpdate{PhotoMode: &on}); err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	key := i18n.KeyPhotoOff
	if on {
		key = i18n.KeyPhotoOn
	}
	b.reply(ctx, chatID, i18n.T(user.Language, key), telegram.SendOptions{})
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64, user *store.User) {
	profile, err := b.profiles.Profile(ctx, user)
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	status := profile.Usage
	text := i18n.T(user.Language, i18n.KeyStatus,
		strings.ToUpper(string(status.Tier)), status.Used, status.Limit, status.PhotoUsed, status.PhotoLimit)
	if status.ProUntil != nil {
		text += i18n.T(user.Language, i18n.KeyStatusPro, status.ProUntil.Format(time.DateOnly))
	}
	b.reply(ctx, chatID, text, telegram.SendOptions{})
}

func (b *Bot) cmdHistory(ctx context.Context, chatID int64, user *store.User) {
	items, err := b.store.ListHistory(ctx, user.TelegramID)
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	if len(items) == 0 {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyHistoryEmpty), telegram.SendOptions{})
		return
	}
	lines := []string{i18n.T(user.Language, i18n.KeyHistoryHeader)}
	for i, item := range items {
		lines = append(lines, i18n.T(user.Language, i18n.KeyHistoryItem,
			i+1, truncate(item.Prompt, 60), b.catalog.Get(item.Style).Name, item.SlideCount))
	}
	b.reply(ctx, chatID, strings.Join(lines, "\n"), telegram.SendOptions{})
}

func (b *Bot) cmdPro(ctx context.Context, chatID int64, user *store.User) {
	if b.payments == nil {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyProDisabled), telegram.SendOptions{})
		return
	}
	checkout, err := b.payments.CreateCheckout(ctx, user.TelegramID)
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	quota := b.cfg.Limits.ProDaily
	text := i18n.T(user.Language, i18n.KeyProOffer, quota, checkout.Days, checkout.Amount, checkout.Currency)
	b.reply(ctx, chatID, text, telegram.SendOptions{
		ReplyMarkup: &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: i18n.T(user.Language, i18n.KeyProButton, checkout.Amount, checkout.Currency), URL: checkout.ConfirmationURL},
		}}},
	})
}

func (b *Bot) cmdStats(ctx context.Context, chatID int64, user *store.User) {
	if !b.cfg.IsAdmin(user.TelegramID) {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyAdminOnly), telegram.SendOptions{})
		return
	}
	stats, err := b.store.AdminStats(ctx)
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	var active, completed, failed int
	for status, count := range stats.JobsByStatus {
		switch status {
		case store.StatusCompleted:
			completed += count
		case store.StatusFailed:
			failed += count
		default:
			active += count
		}
	}
	text := i18n.T(user.Language, i18n.KeyStats,
		stats.UsersByTier[store.TierFree], stats.UsersByTier[store.TierPro],
		stats.GenerationsToday, stats.PhotoToday,
		active, completed, failed,
		formatRevenue(stats.Revenue),
	)
	b.reply(ctx, chatID, text, telegram.SendOptions{})
}

func (b *Bot) cmdGrant(ctx context.Context, chatID int64, user *store.User, args []string) {
	if !b.cfg.IsAdmin(user.TelegramID) {
		b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyAdminOnly), telegram.SendOptions{})
		return
	}
	usage := i18n.T(user.Language, i18n.KeyGrantUsage)
	if len(args) != 2 {
		b.reply(ctx, chatID, usage, telegram.SendOptions{})
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || target <= 0 {
		b.reply(ctx, chatID, usage, telegram.SendOptions{})
		return
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days < 0 {
		b.reply(ctx, chatID, usage, telegram.SendOptions{})
		return
	}
	updated, err := b.store.SetTier(ctx, target, store.TierPro, days)
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	until := "∞"
	if updated.ProUntil != nil {
		until = updated.ProUntil.Format(time.DateOnly)
	}
	b.logger.Info("pro granted by admin",
		logging.Int64("admin_id", user.TelegramID),
		logging.Int64(logging.FieldUserID, target),
		logging.Int("days", days),
	)
	b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyGrantDone, target, until), telegram.SendOptions{})
}

func (b *Bot) handlePrompt(ctx context.Context, chatID int64, user *store.User, text string) {
	job, err := b.carousels.Create(ctx, user, api.CreateRequest{
		Prompt:   text,
		Language: user.Language,
		Source:   store.SourceBot,
		ChatID:   chatID,
	})
	if err != nil {
		b.reply(ctx, chatID, b.errorText(ctx, user, err), telegram.SendOptions{})
		return
	}
	if err := b.api.SendChatAction(ctx, chatID, "typing"); err != nil {
		b.logger.Debug("chat action failed", logging.Error(err))
	}
	style := b.catalog.Get(job.Style)
	b.logger.Info("carousel requested from bot",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldUserID, user.TelegramID),
		logging.String("style", job.Style),
		logging.Int("slides", job.SlideCount),
	)
	b.reply(ctx, chatID, i18n.T(user.Language, i18n.KeyGenerating, job.SlideCount, style.Name), telegram.SendOptions{})
}

// errorText turns a service error into a localized reply.
func (b *Bot) errorText(ctx context.Context, user *store.User, err error) string {
	lang := user.Language
	if errors.Is(err, api.ErrBusy) {
		return i18n.T(lang, i18n.KeyBusy)
	}
	switch services.Details(err).Kind {
	case services.KindLimit:
		status, statusErr := b.profiles.Profile(ctx, user)
		if statusErr == nil {
			return i18n.T(lang, i18n.KeyLimit, status.Usage.Used, status.Usage.Limit)
		}
	case services.KindForbidden:
		return i18n.T(lang, i18n.KeyPhotoForbidden)
	case services.KindValidation:
		return i18n.T(lang, i18n.KeyInvalidRequest)
	}
	logging.WithContext(ctx, b.logger).Error("bot request failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "bot_request_failed"),
	)
	return i18n.T(lang, i18n.KeyGenericError)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) {
	if _, err := b.api.SendMessage(ctx, chatID, text, opts); err != nil {
		if telegram.IsBlocked(err) {
			b.logger.Info("user blocked the bot", logging.Int64("chat_id", chatID))
			return
		}
		logging.WarnWithContext(b.logger, "send message failed", "bot_send_failed",
			logging.Error(err),
			logging.Int64("chat_id", chatID),
			logging.String(logging.FieldImpact, "user did not receive a reply"),
		)
	}
}

func (b *Bot) answer(ctx context.Context, id, text string) {
	if err := b.api.AnswerCallbackQuery(ctx, id, text); err != nil {
		b.logger.Debug("answer callback failed", logging.Error(err))
	}
}

func formatRevenue(revenue map[string]string) string {
	if len(revenue) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(revenue))
	for currency, amount := range revenue {
		parts = append(parts, amount+" "+currency)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
