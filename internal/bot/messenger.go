package bot

import (
	"context"
	"fmt"

	"swipely/internal/i18n"
	"swipely/internal/services/telegram"
	"swipely/internal/store"
)

// NotifyFailure tells the chat that started the job that it failed.
// reason is already localized.
func (b *Bot) NotifyFailure(ctx context.Context, job *store.Job, reason string) error {
	if job == nil || job.ChatID == 0 {
		return nil
	}
	if _, err := b.api.SendMessage(ctx, job.ChatID, i18n.T(job.Language, i18n.KeyJobFailed, reason), telegram.SendOptions{}); err != nil {
		if telegram.IsBlocked(err) {
			return nil
		}
		return fmt.Errorf("notify job %d failure: %w", job.ID, err)
	}
	return nil
}
