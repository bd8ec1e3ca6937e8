// Package chat runs conversation turns: it assembles the prompt from the
// session history, streams the reply from the model manager and records the
// completed exchange.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"ggufchat/internal/manager"
	"ggufchat/internal/prompt"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Generator produces cumulative snapshots for a prompt. *manager.Manager
// implements it.
type Generator interface {
	GenerateWith(ctx context.Context, prompt string, params types.GenerationParams, onSnapshot func(string) bool) (manager.Result, error)
}

// Service is safe for concurrent use. Turns run one at a time, in full: a
// queued turn sees the history of the one before it.
type Service struct {
	gen   Generator
	st    *state.Session
	log   zerolog.Logger
	turns chan struct{}
}

func New(gen Generator, st *state.Session, logger *zerolog.Logger) *Service {
	s := &Service{gen: gen, st: st, log: zerolog.Nop(), turns: make(chan struct{}, 1)}
	if logger != nil {
		s.log = logger.With().Str("component", "chat").Logger()
	}
	return s
}

// Send runs one turn for text. onSnapshot, when non-nil, receives each
// cumulative snapshot of the reply. The user message and the reply are
// appended to the session once generation ends; a stopped or failed
// generation that produced text is still recorded. If nothing was generated
// because of an error, the session is left unchanged and the error returned.
// A turn waiting for the previous one gives up when ctx is done.
func (s *Service) Send(ctx context.Context, text string, onSnapshot func(string) bool) (manager.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return manager.Result{}, ErrEmptyMessage
	}
	select {
	case s.turns <- struct{}{}:
	case <-ctx.Done():
		return manager.Result{}, ctx.Err()
	}
	defer func() { <-s.turns }()

	snap := s.st.Snapshot()
	history := append(snap.Messages, types.Message{Role: types.RoleUser, Content: text})
	p := prompt.Assemble(history, snap.Roleplay, snap.PersonaID)

	s.st.ResetStop()
	res, err := s.gen.GenerateWith(ctx, p, snap.Params, onSnapshot)
	reply := strings.TrimSpace(res.Text)
	if err != nil && reply == "" {
		s.log.Warn().Err(err).Msg("turn failed")
		return res, err
	}
	if aerr := s.st.AppendMessage(types.RoleUser, text); aerr != nil {
		return res, aerr
	}
	if aerr := s.st.AppendMessage(types.RoleAssistant, reply); aerr != nil {
		return res, aerr
	}
	s.log.Debug().Int("tokens", res.Tokens).Str("finish_reason", string(res.FinishReason)).Msg("turn recorded")
	return res, err
}

// Stop asks the running turn to end at the next token.
func (s *Service) Stop() { s.st.RequestStop() }

// Reset clears the conversation history.
func (s *Service) Reset() { s.st.ClearMessages() }
