package manager

import (
	"context"
	"time"

	"ggufchat/pkg/types"
)

// DiagnosticPrompts are run by Diagnose when no prompts are given.
var DiagnosticPrompts = []string{
	"Hello, how are you?",
	"Can you introduce yourself?",
	"What is your primary function?",
}

const diagnosticMaxTokens = 100

// DiagnosticLoadParams mirrors a verbose full-offload load.
func DiagnosticLoadParams() types.LoadParams {
	return types.LoadParams{ContextLength: 4096, BatchSize: 1024, GPULayers: -1, Verbose: true}
}

// PromptCheck is one test prompt's outcome.
type PromptCheck struct {
	Prompt       string        `json:"prompt"`
	Output       string        `json:"output,omitempty"`
	Tokens       int           `json:"tokens"`
	FinishReason FinishReason  `json:"finish_reason,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
}

// DiagnosticReport describes a load-and-generate smoke test.
type DiagnosticReport struct {
	EngineBuilt bool          `json:"engine_built"`
	Path        string        `json:"path"`
	Loaded      bool          `json:"loaded"`
	Model       ModelInfo     `json:"model"`
	Error       string        `json:"error,omitempty"`
	Hint        string        `json:"hint,omitempty"`
	Prompts     []PromptCheck `json:"prompts,omitempty"`
}

// OK reports whether the model loaded and every prompt produced output
// without error.
func (r DiagnosticReport) OK() bool {
	if !r.Loaded {
		return false
	}
	for _, p := range r.Prompts {
		if p.Error != "" {
			return false
		}
	}
	return true
}

// EngineBuilt reports whether this binary includes the llama.cpp runtime.
func EngineBuilt() bool { return llamaBuilt }

// Diagnose loads path and runs each prompt through it with a small token
// budget and no stop sequences. The model stays loaded afterwards. Failures
// are recorded in the report rather than returned.
func (m *Manager) Diagnose(ctx context.Context, path string, params types.LoadParams, prompts []string) DiagnosticReport {
	r := DiagnosticReport{EngineBuilt: EngineBuilt(), Path: path}
	info, err := m.Load(ctx, path, params)
	if err != nil {
		r.Error = err.Error()
		r.Hint = EngineHint(err)
		return r
	}
	r.Loaded = true
	r.Model = info
	if len(prompts) == 0 {
		prompts = DiagnosticPrompts
	}
	gp := m.GenerationDefaults()
	gp.MaxTokens = diagnosticMaxTokens
	gp.Stop = []string{}
	for _, p := range prompts {
		pc := PromptCheck{Prompt: p}
		res, err := m.Generate(ctx, p, gp)
		pc.Output, pc.Tokens, pc.FinishReason, pc.Duration = res.Text, res.Tokens, res.FinishReason, res.Duration
		if err != nil {
			pc.Error = err.Error()
		}
		r.Prompts = append(r.Prompts, pc)
		if ctx.Err() != nil {
			break
		}
	}
	return r
}
