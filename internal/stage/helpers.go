package stage

import (
	"context"
	"log/slog"

	"swipely/internal/carousel"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/store"
)

// LoadSlides decodes the slides persisted on a job. A job that reaches a
// later stage without slides is a validation failure of the stage that
// should have written them.
func LoadSlides(job *store.Job, stageName string) ([]carousel.Slide, error) {
	slides, err := job.Slides()
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, stageName, "decode slides",
			"Stored slides are unreadable; retry the job to regenerate them", err)
	}
	if len(slides) == 0 {
		return nil, services.Wrap(
			services.ErrValidation, stageName, "decode slides",
			"Job has no slides; retry the job to regenerate them", nil)
	}
	return slides, nil
}

// SaveSlides encodes slides onto the job.
func SaveSlides(job *store.Job, slides []carousel.Slide, stageName string) error {
	if err := job.SetSlides(slides); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "encode slides", "Failed to encode slides", err)
	}
	return nil
}

// Report records progress on the job and persists it. Persist failures are
// logged; progress is advisory and never fails a stage.
func Report(ctx context.Context, st ProgressStore, logger *slog.Logger, job *store.Job, message string, percent float64) {
	job.SetProgress("", message, percent)
	if st == nil {
		return
	}
	if err := st.Update(ctx, job); err != nil {
		logging.WithContext(ctx, logger).Warn("failed to persist progress",
			logging.Error(err),
			logging.String(logging.FieldEventType, "progress_persist_failed"),
			logging.String(logging.FieldImpact, "progress shown to the user may lag"),
		)
	}
}
