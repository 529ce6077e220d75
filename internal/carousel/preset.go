package carousel

import (
	"strings"
	"time"
)

// StylePreset is a saved combination of style and format settings.
type StylePreset struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Style     string         `json:"style"`
	Settings  FormatSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Valid reports whether the preset can be saved.
func (p StylePreset) Valid() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Style) != ""
}

// HistoryItem records a past generation.
type HistoryItem struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Style      string    `json:"style"`
	SlideCount int       `json:"slide_count"`
	JobID      int64     `json:"job_id"`
	CreatedAt  time.Time `json:"created_at"`
}
