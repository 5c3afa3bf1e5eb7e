// Package llm provides a provider-agnostic client for language-model
// text generation.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the language-model backend fails or
// produces no output.
var ErrGeneration = errors.New("generation failed")

// Client generates text completions from a prompt. The backend is treated
// as a black box with variable latency; callers supply a context for any
// boundary timeout they want enforced.
type Client interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the identifier of the model in use.
	Model() string

	// Close releases any resources held by the client.
	Close() error
}
