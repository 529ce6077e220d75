package store

import (
	"database/sql"
	"errors"
	"time"

	"swipely/internal/carousel"
)

const jobColumns = "id, telegram_id, chat_id, source, prompt, style, language, slide_count, photo_mode, settings_json, slides_json, output_dir, usage_day, status, error_message, progress_stage, progress_percent, progress_message, created_at, updated_at, last_heartbeat"

const userColumns = "telegram_id, username, first_name, language, tier, pro_until, style, format, slide_count, photo_mode, handle, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job              Job
		source           string
		prompt           sql.NullString
		language         sql.NullString
		photoMode        int64
		settings         sql.NullString
		slides           sql.NullString
		outputDir        sql.NullString
		usageDay         sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		createdRaw       string
		updatedRaw       string
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&job.ID,
		&job.TelegramID,
		&job.ChatID,
		&source,
		&prompt,
		&job.Style,
		&language,
		&job.SlideCount,
		&photoMode,
		&settings,
		&slides,
		&outputDir,
		&usageDay,
		&statusStr,
		&errorMessage,
		&progressStage,
		&job.ProgressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job.Source = Source(source)
	job.Prompt = prompt.String
	job.Language = language.String
	job.PhotoMode = photoMode != 0
	job.SettingsJSON = settings.String
	job.SlidesJSON = slides.String
	job.OutputDir = outputDir.String
	job.UsageDay = usageDay.String
	job.Status = Status(statusStr)
	job.ErrorMessage = errorMessage.String
	job.ProgressStage = progressStage.String
	job.ProgressMessage = progressMessage.String

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return &job, nil
}

func scanUser(scanner rowScanner) (*User, error) {
	var (
		user       User
		username   sql.NullString
		firstName  sql.NullString
		language   sql.NullString
		tier       string
		proUntil   sql.NullString
		style      sql.NullString
		format     sql.NullString
		photoMode  int64
		handle     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&user.TelegramID,
		&username,
		&firstName,
		&language,
		&tier,
		&proUntil,
		&style,
		&format,
		&user.SlideCount,
		&photoMode,
		&handle,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	user.Username = username.String
	user.FirstName = firstName.String
	user.Language = language.String
	user.Tier = Tier(tier)
	user.Style = style.String
	user.Format = carousel.Format(format.String)
	user.PhotoMode = photoMode != 0
	user.Handle = handle.String
	if proUntil.Valid {
		if ts, err := parseTimeString(proUntil.String); err == nil {
			user.ProUntil = &ts
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		user.UpdatedAt = updated
	}
	return &user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
