package manager

import (
	"context"

	"ggufchat/pkg/types"
)

// Engine abstracts the model runtime used by the Manager. The llama.cpp
// engine satisfies it; tests use in-memory fakes.
type Engine interface {
	// Load reads a model file and returns a handle owning its memory.
	Load(path string, params types.LoadParams) (Handle, error)
}

// Handle is one loaded model.
type Handle interface {
	// Generate produces tokens for prompt, calling onToken with each text
	// increment. Returning false from onToken asks the engine to stop; the
	// engine checks it between tokens, so a token already being computed
	// finishes first. Generate returns when generation ends.
	Generate(ctx context.Context, prompt string, params types.GenerationParams, onToken func(string) bool) error
	// Close releases the model's memory.
	Close() error
}

// CacheReleaser is implemented by engines that can drop accelerator memory
// caches after a model is closed. Engines without an accelerator runtime
// simply do not implement it.
type CacheReleaser interface {
	ReleaseCache() error
}
