// Package gemini generates Photo Mode illustrations with the Google GenAI SDK.
//
// GenerateImage asks an image-capable Gemini model for IMAGE output at the
// carousel's aspect ratio and returns the first inline picture. When the
// primary model fails or answers without an image, the fallback model is tried
// once. Callers decide what to do with a final failure; the pipeline keeps the
// scene text as a placeholder instead of failing the job.
package gemini
