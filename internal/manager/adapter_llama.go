//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"ggufchat/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine loads GGUF files in-process through go-llama.cpp.
type llamaEngine struct{}

func NewLlamaEngine() Engine { return llamaEngine{} }

// llamaHandle owns the loaded model
type llamaHandle struct {
	model   *llama.LLama
	threads int
}

func (llamaEngine) Load(path string, params types.LoadParams) (Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(params.ContextLength),
		llama.SetNBatch(params.BatchSize),
	}
	if params.GPULayers != 0 {
		mo = append(mo, llama.SetGPULayers(gpuLayers(params.GPULayers)))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaHandle{model: m, threads: params.Threads}, nil
}

func (h *llamaHandle) Generate(ctx context.Context, prompt string, params types.GenerationParams, onToken func(string) bool) error {
	if h.model == nil {
		return errors.New("llama model not initialized")
	}
	// Bridge token streaming to onToken and respect cancellation
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return onToken(tok)
	})

	// Blocks until done or the callback returns false.
	_, err := h.model.Predict(prompt, predictOptions(params, h.threads)...)
	return err
}

func (h *llamaHandle) Close() error {
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

// gpuLayers maps "all layers" (negative) onto a count larger than any model.
func gpuLayers(n int) int {
	if n < 0 {
		return 1 << 16
	}
	return n
}

// predictOptions converts generation params into go-llama.cpp options.
// Stop sequences are matched by the manager so held-back text is handled in
// one place.
func predictOptions(p types.GenerationParams, threads int) []llama.PredictOption {
	return []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(float32(p.TopP)),
		llama.SetTopK(p.TopK),
		llama.SetTemperature(float32(p.Temperature)),
		llama.SetPenalty(float32(p.RepeatPenalty)),
		llama.SetFrequencyPenalty(float32(p.FrequencyPenalty)),
		llama.SetPresencePenalty(float32(p.PresencePenalty)),
	}
}
