//go:build !llama

package manager

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in adapter_llama.go (tagged 'llama').

import "ggufchat/pkg/types"

var llamaBuilt = false

// llamaEngine is a stub that satisfies Engine but refuses to load models
// without the 'llama' build tag.
type llamaEngine struct{}

func NewLlamaEngine() Engine { return llamaEngine{} }

func (llamaEngine) Load(string, types.LoadParams) (Handle, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
