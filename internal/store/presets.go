package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"swipely/internal/carousel"
)

const presetColumns = "id, name, style, settings_json, created_at, updated_at"

// ErrInvalidPreset is returned when a preset has no name or style.
var ErrInvalidPreset = errors.New("preset name and style are required")

// MaxPresetsPerUser caps how many presets one user may keep.
const MaxPresetsPerUser = 20

// CreatePreset stores a new named preset. Names are unique per user.
func (s *Store) CreatePreset(ctx context.Context, telegramID int64, preset carousel.StylePreset) (*carousel.StylePreset, error) {
	preset.Name = strings.TrimSpace(preset.Name)
	if !preset.Valid() {
		return nil, ErrInvalidPreset
	}
	settings, err := json.Marshal(preset.Settings.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode preset settings: %w", err)
	}
	now := s.clock()
	preset.ID = ulid.Make().String()
	preset.CreatedAt = now
	preset.UpdatedAt = now
	preset.Settings = preset.Settings.Normalize()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM presets WHERE telegram_id = ?`, telegramID).Scan(&count); err != nil {
			return fmt.Errorf("count presets: %w", err)
		}
		if count >= MaxPresetsPerUser {
			return fmt.Errorf("%w: at most %d presets", ErrConflict, MaxPresetsPerUser)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO presets (id, telegram_id, name, style, settings_json, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			preset.ID, telegramID, preset.Name, preset.Style, string(settings), formatTime(now), formatTime(now))
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: preset %q", ErrConflict, preset.Name)
		}
		if err != nil {
			return fmt.Errorf("insert preset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

// UpdatePreset replaces name, style and settings of an existing preset.
func (s *Store) UpdatePreset(ctx context.Context, telegramID int64, preset carousel.StylePreset) (*carousel.StylePreset, error) {
	preset.Name = strings.TrimSpace(preset.Name)
	if !preset.Valid() {
		return nil, ErrInvalidPreset
	}
	settings, err := json.Marshal(preset.Settings.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode preset settings: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE presets SET name = ?, style = ?, settings_json = ?, updated_at = ?
         WHERE id = ? AND telegram_id = ?`,
		preset.Name, preset.Style, string(settings), formatTime(s.clock()), preset.ID, telegramID)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: preset %q", ErrConflict, preset.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("update preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPreset(ctx, telegramID, preset.ID)
}

// GetPreset returns one preset owned by the user.
func (s *Store) GetPreset(ctx context.Context, telegramID int64, id string) (*carousel.StylePreset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+presetColumns+` FROM presets WHERE id = ? AND telegram_id = ?`, id, telegramID)
	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preset: %w", err)
	}
	return preset, nil
}

// ListPresets returns a user's presets, oldest first.
func (s *Store) ListPresets(ctx context.Context, telegramID int64) ([]carousel.StylePreset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+presetColumns+` FROM presets WHERE telegram_id = ? ORDER BY id`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()
	presets := []carousel.StylePreset{}
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *preset)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset owned by the user.
func (s *Store) DeletePreset(ctx context.Context, telegramID int64, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM presets WHERE id = ? AND telegram_id = ?`, id, telegramID)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPreset(scanner rowScanner) (*carousel.StylePreset, error) {
	var (
		preset     carousel.StylePreset
		settings   string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&preset.ID, &preset.Name, &preset.Style, &settings, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	preset.Settings = carousel.DefaultSettings()
	if err := json.Unmarshal([]byte(settings), &preset.Settings); err != nil {
		return nil, fmt.Errorf("decode preset settings: %w", err)
	}
	preset.Settings = preset.Settings.Normalize()
	preset.CreatedAt, _ = parseTimeString(createdRaw)
	preset.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &preset, nil
}
