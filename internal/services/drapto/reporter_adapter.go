package drapto

import (
	"fmt"

	draptolib "github.com/five82/drapto"
)

// progressReporter folds Drapto's reporter callbacks into ProgressUpdate.
// Callbacks the promo flow has no use for are dropped.
type progressReporter struct {
	emit func(ProgressUpdate)
}

func newProgressReporter(emit func(ProgressUpdate)) *progressReporter {
	return &progressReporter{emit: emit}
}

func (r *progressReporter) Hardware(draptolib.HardwareSummary) {}

func (r *progressReporter) Initialization(s draptolib.InitializationSummary) {
	r.emit(ProgressUpdate{Stage: "initializing", Message: fmt.Sprintf("%s (%s)", s.InputFile, s.Resolution)})
}

func (r *progressReporter) StageProgress(s draptolib.StageProgress) {
	r.emit(ProgressUpdate{Percent: float64(s.Percent), Stage: s.Stage, Message: s.Message})
}

func (r *progressReporter) CropResult(draptolib.CropSummary) {}

func (r *progressReporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.emit(ProgressUpdate{Stage: "configured", Message: fmt.Sprintf("%s preset %s", s.Encoder, s.Preset)})
}

func (r *progressReporter) EncodingStarted(uint64) {
	r.emit(ProgressUpdate{Stage: "encoding"})
}

func (r *progressReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.emit(ProgressUpdate{
		Percent: float64(s.Percent),
		Stage:   "encoding",
		Message: fmt.Sprintf("%.1f fps", float64(s.FPS)),
	})
}

func (r *progressReporter) ValidationComplete(s draptolib.ValidationSummary) {
	msg := "validation passed"
	if !s.Passed {
		msg = "validation failed"
	}
	r.emit(ProgressUpdate{Percent: 100, Stage: "validating", Message: msg, Warning: !s.Passed})
}

func (r *progressReporter) EncodingComplete(s draptolib.EncodingOutcome) {
	r.emit(ProgressUpdate{Percent: 100, Stage: "complete", Message: s.OutputPath})
}

func (r *progressReporter) Warning(message string) {
	r.emit(ProgressUpdate{Stage: "warning", Message: message, Warning: true})
}

func (r *progressReporter) Error(e draptolib.ReporterError) {
	r.emit(ProgressUpdate{Stage: "error", Message: e.Title + ": " + e.Message, Warning: true})
}

func (r *progressReporter) OperationComplete(message string) {
	r.emit(ProgressUpdate{Percent: 100, Stage: "complete", Message: message})
}

func (r *progressReporter) BatchStarted(draptolib.BatchStartInfo) {}

func (r *progressReporter) FileProgress(draptolib.FileProgressContext) {}

func (r *progressReporter) BatchComplete(draptolib.BatchSummary) {}

var _ draptolib.Reporter = (*progressReporter)(nil)
