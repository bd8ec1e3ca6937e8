// Package state holds the live conversation and settings shared by the
// lifecycle manager, the session store and the presentation layer. A single
// *Session is created by the application root and handed to each component.
package state

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ggufchat/internal/persona"
	"ggufchat/internal/preset"
	"ggufchat/pkg/types"
)

// DefaultParams are the generation settings a fresh session starts with.
func DefaultParams() types.GenerationParams {
	return types.GenerationParams{
		Temperature:   0.7,
		TopP:          0.95,
		TopK:          40,
		RepeatPenalty: 1.1,
		MaxTokens:     512,
	}
}

// Snapshot is a detached copy of a Session.
type Snapshot struct {
	ID          string
	Messages    []types.Message
	Params      types.GenerationParams
	Roleplay    bool
	PersonaID   string
	Theme       types.Theme
	Presets     map[string]types.Preset
	ModelPath   string
	ModelParams types.LoadParams
}

// Session is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	id          string
	messages    []types.Message
	params      types.GenerationParams
	roleplay    bool
	personaID   string
	theme       types.Theme
	presets     map[string]types.Preset
	modelPath   string
	modelParams types.LoadParams

	stop atomic.Bool
}

// New returns a session initialized with defaults.
func New() *Session {
	return &Session{
		id:        uuid.NewString(),
		params:    DefaultParams(),
		personaID: persona.DefaultID,
		theme:     types.DefaultTheme(),
		presets:   map[string]types.Preset{},
	}
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:          s.id,
		Messages:    slices.Clone(s.messages),
		Params:      s.params.Clone(),
		Roleplay:    s.roleplay,
		PersonaID:   s.personaID,
		Theme:       s.theme,
		Presets:     clonePresets(s.presets),
		ModelPath:   s.modelPath,
		ModelParams: s.modelParams,
	}
}

// Restore replaces conversation, settings and presets with snap. The session
// id and the loaded-model fields are kept; loading the model a snapshot refers
// to is the caller's decision.
func (s *Session) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = slices.Clone(snap.Messages)
	s.params = snap.Params.Clone()
	s.roleplay = snap.Roleplay
	s.personaID = snap.PersonaID
	if s.personaID == "" {
		s.personaID = persona.DefaultID
	}
	s.theme = snap.Theme
	s.presets = clonePresets(snap.Presets)
}

func (s *Session) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// AppendMessage adds a message at the end of the conversation.
func (s *Session) AppendMessage(role types.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	s.mu.Lock()
	s.messages = append(s.messages, types.Message{Role: role, Content: content})
	s.mu.Unlock()
	return nil
}

func (s *Session) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

func (s *Session) Params() types.GenerationParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Clone()
}

// SetParams validates and stores p.
func (s *Session) SetParams(p types.GenerationParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p.Clone()
	s.mu.Unlock()
	return nil
}

// Persona returns the selected persona id and whether roleplay is on.
func (s *Session) Persona() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personaID, s.roleplay
}

func (s *Session) SetPersona(id string, roleplay bool) error {
	if !persona.Known(id) {
		return fmt.Errorf("unknown persona %q", id)
	}
	s.mu.Lock()
	s.personaID = id
	s.roleplay = roleplay
	s.mu.Unlock()
	return nil
}

func (s *Session) Theme() types.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Session) SetTheme(t types.Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
}

// Presets returns a copy of the user-defined presets.
func (s *Session) Presets() map[string]types.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePresets(s.presets)
}

// SavePreset stores the current parameters as a user preset and returns its key.
func (s *Session) SavePreset(name, description string) (string, error) {
	key := preset.Key(name)
	if key == "" {
		return "", fmt.Errorf("preset name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params.Clone()
	p.Stop = nil
	s.presets[key] = types.Preset{Name: name, Description: description, Parameters: p}
	return key, nil
}

// DeletePreset removes a user preset, reporting whether it existed.
func (s *Session) DeletePreset(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[key]; !ok {
		return false
	}
	delete(s.presets, key)
	return true
}

// ApplyPreset copies a preset's sampling settings into the current
// parameters. Stop sequences are kept.
func (s *Session) ApplyPreset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := preset.All(s.presets)[key]
	if !ok {
		return fmt.Errorf("unknown preset %q", key)
	}
	next := p.Parameters.Clone()
	next.Stop = slices.Clone(s.params.Stop)
	s.params = next
	return nil
}

// MergePresets adds imported presets (imported entries win) and returns the
// number of new keys.
func (s *Session) MergePresets(imported map[string]types.Preset) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, added := preset.Merge(s.presets, imported)
	s.presets = merged
	return added
}

// Model returns the path and parameters of the model currently loaded, if any.
func (s *Session) Model() (string, types.LoadParams) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelPath, s.modelParams
}

func (s *Session) SetModel(path string, params types.LoadParams) {
	s.mu.Lock()
	s.modelPath = path
	s.modelParams = params
	s.mu.Unlock()
}

func (s *Session) ClearModel() {
	s.SetModel("", types.LoadParams{})
}

// RequestStop raises the cooperative stop flag observed between tokens.
func (s *Session) RequestStop() { s.stop.Store(true) }

// ResetStop lowers the stop flag; called before each new generation.
func (s *Session) ResetStop() { s.stop.Store(false) }

// StopRequested reports whether a stop was requested.
func (s *Session) StopRequested() bool { return s.stop.Load() }

func clonePresets(in map[string]types.Preset) map[string]types.Preset {
	out := make(map[string]types.Preset, len(in))
	for k, v := range in {
		v.Parameters = v.Parameters.Clone()
		out[k] = v
	}
	return out
}
