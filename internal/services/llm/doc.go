// Package llm provides an OpenRouter chat client that writes carousel copy.
//
// GenerateCarousel asks the model for a JSON list of slides (hook, content,
// cta) in the requested language and validates the count: extra slides are
// trimmed and a short answer is an error. DescribeScenes turns finished slides
// into one illustration brief each for Photo Mode.
//
// # Models
//
// Every operation runs against the configured model first. When that fails,
// including when its answer cannot be parsed, the fallback model gets one try.
//
// # Retry Behaviour
//
// Within one model the client retries HTTP 408/429/5xx, network timeouts and
// empty completions with exponential backoff (base 1s, max 10s, 4 attempts by
// default). Retry-After is honoured. Context cancellation aborts immediately.
//
// Models like to wrap JSON in markdown fences or prose; DecodeLLMJSON strips
// both before decoding.
package llm
