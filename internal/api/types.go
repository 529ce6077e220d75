package api

import (
	"swipely/internal/carousel"
	"swipely/internal/usage"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Carousel describes a generation job in a transport-friendly format.
type Carousel struct {
	ID           int64                   `json:"id"`
	Status       string                  `json:"status"`
	Source       string                  `json:"source"`
	Lane         string                  `json:"lane"`
	Prompt       string                  `json:"prompt"`
	Style        string                  `json:"style"`
	Language     string                  `json:"language,omitempty"`
	SlideCount   int                     `json:"slideCount"`
	PhotoMode    bool                    `json:"photoMode"`
	Settings     carousel.FormatSettings `json:"settings"`
	Slides       []carousel.Slide        `json:"slides,omitempty"`
	Progress     Progress                `json:"progress"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	CreatedAt    string                  `json:"createdAt,omitempty"`
	UpdatedAt    string                  `json:"updatedAt,omitempty"`
}

// Progress captures stage progress information for a job.
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Profile is the signed-in user's account view.
type Profile struct {
	TelegramID int64        `json:"telegramId"`
	Username   string       `json:"username,omitempty"`
	FirstName  string       `json:"firstName,omitempty"`
	Language   string       `json:"language"`
	Tier       string       `json:"tier"`
	ProUntil   string       `json:"proUntil,omitempty"`
	Style      string       `json:"style"`
	Format     string       `json:"format"`
	SlideCount int          `json:"slideCount"`
	PhotoMode  bool         `json:"photoMode"`
	Handle     string       `json:"handle,omitempty"`
	IsAdmin    bool         `json:"isAdmin"`
	Usage      usage.Status `json:"usage"`
}

// Template summarizes a design template for pickers.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Background  string `json:"background"`
	Text        string `json:"text"`
	Accent      string `json:"accent"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	JobStats    map[string]int `json:"jobStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Carousel      `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	BotRunning   bool               `json:"botRunning"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// AdminStats is the admin dashboard payload.
type AdminStats struct {
	UsersByTier      map[string]int    `json:"usersByTier"`
	JobsByStatus     map[string]int    `json:"jobsByStatus"`
	GenerationsToday int               `json:"generationsToday"`
	PhotoToday       int               `json:"photoToday"`
	Revenue          map[string]string `json:"revenue"`
}

// CarouselListResponse wraps a collection of carousels.
type CarouselListResponse struct {
	Items []Carousel `json:"items"`
}

// CarouselResponse wraps a single carousel.
type CarouselResponse struct {
	Item Carousel `json:"item"`
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	TelegramID int64  `json:"telegramId"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	Language   string `json:"language,omitempty"`
	Tier       string `json:"tier"`
	ProUntil   string `json:"proUntil,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}
