package manager

import (
	"context"
	"iter"
	"slices"
	"time"

	"ggufchat/pkg/types"
)

// ResolveParams merges p over the generation defaults and validates the
// result. Zero MaxTokens, TopP, TopK and RepeatPenalty and a nil Stop take
// the defaults; Temperature and the frequency and presence penalties are
// used as given, since zero is meaningful for them.
func (m *Manager) ResolveParams(p types.GenerationParams) (types.GenerationParams, error) {
	d := m.genDefaults
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.TopK == 0 {
		p.TopK = d.TopK
	}
	if p.RepeatPenalty == 0 {
		p.RepeatPenalty = d.RepeatPenalty
	}
	if p.Stop == nil {
		p.Stop = slices.Clone(d.Stop)
	} else {
		p.Stop = slices.Clone(p.Stop)
	}
	if err := p.Validate(); err != nil {
		return p, validationError{err: err}
	}
	return p, nil
}

// Generate runs one generation to completion and returns the full text.
func (m *Manager) Generate(ctx context.Context, prompt string, params types.GenerationParams) (Result, error) {
	return m.GenerateWith(ctx, prompt, params, nil)
}

// Stream returns a finite sequence of cumulative snapshots: each value is the
// whole response so far. An error, if any, is yielded last with an empty
// snapshot. Breaking out of the loop stops generation at the next token.
func (m *Manager) Stream(ctx context.Context, prompt string, params types.GenerationParams) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		done := false
		_, err := m.GenerateWith(ctx, prompt, params, func(snap string) bool {
			if !yield(snap, nil) {
				done = true
				return false
			}
			return true
		})
		if err != nil && !done {
			yield("", err)
		}
	}
}

// GenerateWith is the core generation loop. onSnapshot, when non-nil,
// receives each new cumulative snapshot; returning false cancels the
// generation. Cancellation (ctx, the session stop flag or onSnapshot) is
// checked once per token. The engine cannot be interrupted while it computes
// a token. A cancelled generation returns its partial text and no error.
func (m *Manager) GenerateWith(ctx context.Context, prompt string, params types.GenerationParams, onSnapshot func(string) bool) (Result, error) {
	p, err := m.ResolveParams(params)
	if err != nil {
		return Result{}, err
	}
	release, err := m.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()
	if m.handle == nil {
		return Result{}, ErrNoModelLoaded()
	}

	name := m.Info().Name
	m.publisher.Publish(Event{Name: "generate_start", Model: name, Fields: map[string]any{"max_tokens": p.MaxTokens, "prompt_bytes": len(prompt)}})
	start := time.Now()
	acc := newAccumulator(p.MaxTokens, p.Stop)
	cancelled := false
	published := 0

	publish := func() bool {
		if onSnapshot == nil || acc.emitted == published {
			return true
		}
		published = acc.emitted
		return onSnapshot(acc.snapshot())
	}

	genErr := m.runGenerate(ctx, prompt, p, func(tok string) bool {
		if ctx.Err() != nil || (m.st != nil && m.st.StopRequested()) {
			cancelled = true
			return false
		}
		more := acc.push(tok)
		if !publish() {
			cancelled = true
			return false
		}
		return more
	})
	generatedTokens.Add(float64(acc.tokens))

	if genErr != nil && !cancelled && acc.reason == "" {
		err := newEngineError("generate", genErr)
		m.publisher.Publish(Event{Name: "generate_done", Model: name, Fields: map[string]any{"error": err.Error(), "tokens": acc.tokens}})
		m.log.Error().Err(err).Str("hint", EngineHint(err)).Int("tokens", acc.tokens).Msg("generation failed")
		return Result{Text: acc.snapshot(), Tokens: acc.tokens, Duration: time.Since(start)}, err
	}

	switch {
	case cancelled:
		acc.reason = FinishCancelled
	case acc.reason == "":
		acc.reason = FinishStop
	}
	if acc.reason != FinishCancelled {
		acc.flush()
		publish()
	}

	res := Result{
		Text:         acc.snapshot(),
		Tokens:       acc.tokens,
		FinishReason: acc.reason,
		Duration:     time.Since(start),
	}
	generationsTotal.WithLabelValues(string(res.FinishReason)).Inc()
	m.publisher.Publish(Event{Name: "generate_done", Model: name, Fields: map[string]any{"finish_reason": string(res.FinishReason), "tokens": res.Tokens}})
	m.log.Debug().Str("model", name).Int("tokens", res.Tokens).Str("finish_reason", string(res.FinishReason)).
		Dur("took", res.Duration).Msg("generation finished")
	return res, nil
}

// runGenerate calls the handle, converting a panic into an error.
func (m *Manager) runGenerate(ctx context.Context, prompt string, p types.GenerationParams, onToken func(string) bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic("generate", r)
		}
	}()
	return m.handle.Generate(ctx, prompt, p, onToken)
}
