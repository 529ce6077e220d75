package pipeline

import (
	"context"
	"errors"

	"swipely/internal/carousel"
	"swipely/internal/services"
	"swipely/internal/services/llm"
)

// classifyLLMError maps LLM client failures onto service markers.
func classifyLLMError(stageName, op string, err error) error {
	switch {
	case errors.Is(err, carousel.ErrEmptyPrompt):
		return services.Wrap(services.ErrValidation, stageName, op, "Prompt is empty", err)
	case errors.Is(err, llm.ErrNoAPIKey):
		return services.Wrap(services.ErrConfiguration, stageName, op, "LLM API key is not configured", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, op, "Text model timed out", err)
	case errors.Is(err, llm.ErrTooFewSlides):
		return services.Wrap(services.ErrTransient, stageName, op, "Text model returned too few slides", err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, op, "Text model request failed", err)
	}
}
