package types

import (
	"fmt"
	"slices"
)

// LoadParams are passed to the engine when a model is loaded.
// Zero values mean "use the manager default". GPULayers may be negative to
// offload every layer.
type LoadParams struct {
	ContextLength int  `json:"n_ctx" yaml:"n_ctx" toml:"n_ctx"`
	BatchSize     int  `json:"n_batch" yaml:"n_batch" toml:"n_batch"`
	Threads       int  `json:"n_threads" yaml:"n_threads" toml:"n_threads"`
	GPULayers     int  `json:"n_gpu_layers" yaml:"n_gpu_layers" toml:"n_gpu_layers"`
	Verbose       bool `json:"verbose" yaml:"verbose" toml:"verbose"`
}

// Merge returns p with every non-zero field of over applied on top.
func (p LoadParams) Merge(over LoadParams) LoadParams {
	if over.ContextLength > 0 {
		p.ContextLength = over.ContextLength
	}
	if over.BatchSize > 0 {
		p.BatchSize = over.BatchSize
	}
	if over.Threads > 0 {
		p.Threads = over.Threads
	}
	if over.GPULayers != 0 {
		p.GPULayers = over.GPULayers
	}
	if over.Verbose {
		p.Verbose = true
	}
	return p
}

// GenerationParams controls sampling for a single generation.
type GenerationParams struct {
	Temperature      float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP             float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK             int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	RepeatPenalty    float64  `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty" yaml:"frequency_penalty" toml:"frequency_penalty"`
	PresencePenalty  float64  `json:"presence_penalty" yaml:"presence_penalty" toml:"presence_penalty"`
	MaxTokens        int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Stop             []string `json:"stop" yaml:"stop,omitempty" toml:"stop,omitempty"`
}

// Bounds for GenerationParams. Every field is checked on its own; there are
// no cross-field constraints.
const (
	MaxTemperature  = 2.0
	MaxPenalty      = 2.0
	MaxTopK         = 200
	MaxOutputTokens = 32768
	MaxStopWords    = 16
)

// Validate checks each field against its range.
func (p GenerationParams) Validate() error {
	switch {
	case p.Temperature < 0 || p.Temperature > MaxTemperature:
		return fmt.Errorf("temperature %.3f out of range [0,%.0f]", p.Temperature, MaxTemperature)
	case p.TopP < 0 || p.TopP > 1:
		return fmt.Errorf("top_p %.3f out of range [0,1]", p.TopP)
	case p.TopK < 0 || p.TopK > MaxTopK:
		return fmt.Errorf("top_k %d out of range [0,%d]", p.TopK, MaxTopK)
	case p.RepeatPenalty < 0 || p.RepeatPenalty > MaxPenalty:
		return fmt.Errorf("repeat_penalty %.3f out of range [0,%.0f]", p.RepeatPenalty, MaxPenalty)
	case p.FrequencyPenalty < 0 || p.FrequencyPenalty > MaxPenalty:
		return fmt.Errorf("frequency_penalty %.3f out of range [0,%.0f]", p.FrequencyPenalty, MaxPenalty)
	case p.PresencePenalty < 0 || p.PresencePenalty > MaxPenalty:
		return fmt.Errorf("presence_penalty %.3f out of range [0,%.0f]", p.PresencePenalty, MaxPenalty)
	case p.MaxTokens < 0 || p.MaxTokens > MaxOutputTokens:
		return fmt.Errorf("max_tokens %d out of range [0,%d]", p.MaxTokens, MaxOutputTokens)
	case len(p.Stop) > MaxStopWords:
		return fmt.Errorf("too many stop sequences: %d > %d", len(p.Stop), MaxStopWords)
	}
	if slices.Contains(p.Stop, "") {
		return fmt.Errorf("empty stop sequence")
	}
	return nil
}

// SameSampling reports whether p and o have identical numeric settings.
// Stop sequences are ignored.
func (p GenerationParams) SameSampling(o GenerationParams) bool {
	return p.Temperature == o.Temperature &&
		p.TopP == o.TopP &&
		p.TopK == o.TopK &&
		p.RepeatPenalty == o.RepeatPenalty &&
		p.FrequencyPenalty == o.FrequencyPenalty &&
		p.PresencePenalty == o.PresencePenalty &&
		p.MaxTokens == o.MaxTokens
}

// Clone returns a deep copy.
func (p GenerationParams) Clone() GenerationParams {
	p.Stop = slices.Clone(p.Stop)
	return p
}
