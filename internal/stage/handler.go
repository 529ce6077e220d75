package stage

import (
	"context"

	"swipely/internal/store"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *store.Job) error
	Execute(context.Context, *store.Job) error
	HealthCheck(context.Context) Health
}

// ProgressStore persists intermediate job state while a stage runs.
type ProgressStore interface {
	Update(context.Context, *store.Job) error
}
