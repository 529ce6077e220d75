package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"swipely/internal/carousel"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusWriting      Status = "writing"
	StatusWritten      Status = "written"
	StatusDescribing   Status = "describing"
	StatusDescribed    Status = "described"
	StatusIllustrating Status = "illustrating"
	StatusIllustrated  Status = "illustrated"
	StatusRendering    Status = "rendering"
	StatusRendered     Status = "rendered"
	StatusDelivering   Status = "delivering"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusWriting,
	StatusWritten,
	StatusDescribing,
	StatusDescribed,
	StatusIllustrating,
	StatusIllustrated,
	StatusRendering,
	StatusRendered,
	StatusDelivering,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions maps each in-flight status to the status its stage starts from.
var stageRollbackTransitions = []statusTransition{
	{from: StatusWriting, to: StatusPending},
	{from: StatusDescribing, to: StatusWritten},
	{from: StatusIllustrating, to: StatusDescribed},
	{from: StatusRendering, to: StatusIllustrated},
	{from: StatusDelivering, to: StatusRendered},
}

var processingStatuses = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(stageRollbackTransitions))
	for _, tr := range stageRollbackTransitions {
		set[tr.from] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the job will not advance further without intervention.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Lane names the workflow lane that owns a status.
type Lane string

const (
	LaneText  Lane = "text"
	LaneMedia Lane = "media"
)

// LaneForStatus reports which lane processes a job in the given status.
// Terminal statuses have no lane.
func LaneForStatus(status Status) Lane {
	switch status {
	case StatusPending, StatusWriting, StatusWritten, StatusDescribing:
		return LaneText
	case StatusCompleted, StatusFailed, "":
		return ""
	default:
		return LaneMedia
	}
}

// Source identifies which front-end created a job.
type Source string

const (
	SourceBot Source = "bot"
	SourceWeb Source = "web"
	SourceCLI Source = "cli"
)

// Job represents a carousel generation persisted in SQLite.
type Job struct {
	ID              int64
	TelegramID      int64
	ChatID          int64
	Source          Source
	Prompt          string
	Style           string
	Language        string
	SlideCount      int
	PhotoMode       bool
	SettingsJSON    string
	SlidesJSON      string
	OutputDir       string
	UsageDay        string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// Slides decodes the stored carousel slides.
func (j *Job) Slides() ([]carousel.Slide, error) {
	if strings.TrimSpace(j.SlidesJSON) == "" {
		return nil, nil
	}
	var slides []carousel.Slide
	if err := json.Unmarshal([]byte(j.SlidesJSON), &slides); err != nil {
		return nil, fmt.Errorf("decode slides for job %d: %w", j.ID, err)
	}
	return slides, nil
}

// SetSlides encodes slides onto the job.
func (j *Job) SetSlides(slides []carousel.Slide) error {
	data, err := json.Marshal(slides)
	if err != nil {
		return fmt.Errorf("encode slides: %w", err)
	}
	j.SlidesJSON = string(data)
	return nil
}

// Settings decodes the stored format settings, falling back to defaults.
func (j *Job) Settings() carousel.FormatSettings {
	settings := carousel.DefaultSettings()
	if strings.TrimSpace(j.SettingsJSON) != "" {
		_ = json.Unmarshal([]byte(j.SettingsJSON), &settings)
	}
	return settings.Normalize()
}

// SetSettings encodes format settings onto the job.
func (j *Job) SetSettings(settings carousel.FormatSettings) error {
	data, err := json.Marshal(settings.Normalize())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	j.SettingsJSON = string(data)
	return nil
}

// InitProgress resets progress fields for a new stage.
func (j *Job) InitProgress(stage, message string) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress records stage progress.
func (j *Job) SetProgress(stage, message string, percent float64) {
	if stage != "" {
		j.ProgressStage = stage
	}
	j.ProgressMessage = message
	switch {
	case percent < 0:
		j.ProgressPercent = 0
	case percent > 100:
		j.ProgressPercent = 100
	default:
		j.ProgressPercent = percent
	}
}

// SetFailed marks the job as failed with the provided message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = strings.TrimSpace(message)
	j.ProgressStage = "Failed"
	j.ProgressMessage = j.ErrorMessage
	j.LastHeartbeat = nil
}

// Tier is a subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// ParseTier converts a string into a known Tier.
func ParseTier(value string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierFree:
		return TierFree, true
	case TierPro:
		return TierPro, true
	default:
		return "", false
	}
}

// User is a Telegram account known to Swipely together with its bot preferences.
type User struct {
	TelegramID int64
	Username   string
	FirstName  string
	Language   string
	Tier       Tier
	ProUntil   *time.Time
	Style      string
	Format     carousel.Format
	SlideCount int
	PhotoMode  bool
	Handle     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveTier returns the tier in force at the given instant. A pro tier
// without an expiry never lapses.
func (u User) EffectiveTier(now time.Time) Tier {
	if u.Tier != TierPro {
		return TierFree
	}
	if u.ProUntil != nil && !u.ProUntil.After(now) {
		return TierFree
	}
	return TierPro
}

// Usage holds one user's counters for a single UTC day.
type Usage struct {
	TelegramID       int64
	Day              string
	Generations      int
	PhotoGenerations int
}

// PaymentStatus mirrors the provider's payment lifecycle.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentCanceled  PaymentStatus = "canceled"
)

// Payment is a subscription purchase.
type Payment struct {
	ID              string
	TelegramID      int64
	Amount          string
	Currency        string
	Days            int
	Status          PaymentStatus
	ConfirmationURL string
	IdempotenceKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// DayKey formats a UTC day used to bucket usage counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
