package api

import (
	"slices"
	"time"

	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/workflow"
)

// FromJob converts a job record to its API representation. Slides are
// included when they decode; a corrupt slide payload is left out rather than
// failing the whole response.
func FromJob(job *store.Job) Carousel {
	if job == nil {
		return Carousel{}
	}
	dto := Carousel{
		ID:         job.ID,
		Status:     string(job.Status),
		Source:     string(job.Source),
		Lane:       string(store.LaneForStatus(job.Status)),
		Prompt:     job.Prompt,
		Style:      job.Style,
		Language:   job.Language,
		SlideCount: job.SlideCount,
		PhotoMode:  job.PhotoMode,
		Settings:   job.Settings(),
		Progress: Progress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
	}
	if slides, err := job.Slides(); err == nil {
		dto.Slides = slides
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of jobs into API DTOs.
func FromJobs(jobs []*store.Job) []Carousel {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Carousel, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromTemplates converts catalog styles into picker entries.
func FromTemplates(styles []templates.Style) []Template {
	out := make([]Template, 0, len(styles))
	for _, style := range styles {
		out = append(out, Template{
			ID:          style.ID,
			Name:        style.Name,
			Description: style.Description,
			Background:  style.Colors.Background,
			Text:        style.Colors.Text,
			Accent:      style.Colors.Accent,
		})
	}
	return out
}

// FromAdminStats converts store admin statistics.
func FromAdminStats(stats store.AdminStats) AdminStats {
	tiers := make(map[string]int, len(stats.UsersByTier))
	for tier, count := range stats.UsersByTier {
		tiers[string(tier)] = count
	}
	return AdminStats{
		UsersByTier:      tiers,
		JobsByStatus:     MergeJobStats(stats.JobsByStatus),
		GenerationsToday: stats.GenerationsToday,
		PhotoToday:       stats.PhotoToday,
		Revenue:          stats.Revenue,
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	healthNames := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		healthNames = append(healthNames, name)
	}
	slices.Sort(healthNames)

	health := make([]StageHealth, 0, len(healthNames))
	for _, name := range healthNames {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		JobStats:    MergeJobStats(summary.QueueStats),
		StageHealth: health,
		LastError:   summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeJobStats returns counts for every known status, zero-filled.
func MergeJobStats(stats map[store.Status]int) map[string]int {
	out := make(map[string]int, len(store.AllStatuses()))
	for _, status := range store.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromUsers converts users for the admin list, reporting the tier in force at now.
func FromUsers(users []*store.User, now time.Time) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, user := range users {
		summary := UserSummary{
			TelegramID: user.TelegramID,
			Username:   user.Username,
			FirstName:  user.FirstName,
			Language:   user.Language,
			Tier:       string(user.EffectiveTier(now)),
		}
		if user.ProUntil != nil {
			summary.ProUntil = user.ProUntil.UTC().Format(dateTimeFormat)
		}
		if !user.CreatedAt.IsZero() {
			summary.CreatedAt = user.CreatedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, summary)
	}
	return out
}
