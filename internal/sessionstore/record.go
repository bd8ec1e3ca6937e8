package sessionstore

import (
	"bytes"
	"encoding/json"
	"time"

	"ggufchat/internal/persona"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// Record is the on-disk session layout.
type Record struct {
	Timestamp        float64                 `json:"timestamp"`
	FormattedTime    string                  `json:"formatted_time"`
	ModelPath        string                  `json:"model_path"`
	ModelParams      types.LoadParams        `json:"model_params"`
	Messages         []types.Message         `json:"messages"`
	Roleplay         bool                    `json:"roleplay_mode"`
	PersonaID        string                  `json:"selected_persona"`
	GenerationParams types.GenerationParams  `json:"generation_params"`
	Theme            types.Theme             `json:"theme_settings"`
	UserPresets      map[string]types.Preset `json:"user_presets"`
	Metadata         Metadata                `json:"metadata"`
}

// Metadata identifies a saved session.
type Metadata struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
}

// Time converts the epoch-seconds timestamp.
func (r *Record) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Snapshot converts the record into state that Session.Restore accepts.
func (r *Record) Snapshot() state.Snapshot {
	return state.Snapshot{
		Messages:    r.Messages,
		Params:      r.GenerationParams,
		Roleplay:    r.Roleplay,
		PersonaID:   r.PersonaID,
		Theme:       r.Theme,
		Presets:     r.UserPresets,
		ModelPath:   r.ModelPath,
		ModelParams: r.ModelParams,
	}
}

// Validate checks everything Apply pushes into live state.
func (r *Record) Validate() error {
	if r == nil {
		return errValidation("no session data")
	}
	if r.Messages == nil {
		return errValidation("missing messages")
	}
	if len(r.Messages) > MaxMessages {
		return errValidation("%d messages exceeds limit %d", len(r.Messages), MaxMessages)
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return errValidation("message %d has unknown role %q", i, m.Role)
		}
	}
	if r.PersonaID != "" && !persona.Known(r.PersonaID) {
		return errValidation("unknown persona %q", r.PersonaID)
	}
	if err := r.GenerationParams.Validate(); err != nil {
		return errValidation("generation_params: %v", err)
	}
	for key, p := range r.UserPresets {
		if err := p.Parameters.Validate(); err != nil {
			return errValidation("preset %q: %v", key, err)
		}
	}
	return nil
}

// decodeRecord parses data in two passes: the first confirms the required
// fields exist with the right shape, the second fills the Record. Messages
// beyond MaxMessages are dropped.
func decodeRecord(path string, data []byte) (*Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, corruptError{path: path, err: err}
	}
	ts, ok := raw["timestamp"]
	if !ok {
		return nil, errValidation("missing timestamp")
	}
	var f float64
	if err := json.Unmarshal(ts, &f); err != nil {
		return nil, errValidation("timestamp is not a number")
	}
	msgs, ok := raw["messages"]
	if !ok {
		return nil, errValidation("missing messages")
	}
	if b := bytes.TrimSpace(msgs); len(b) == 0 || b[0] != '[' {
		return nil, errValidation("messages is not a list")
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, corruptError{path: path, err: err}
	}
	if len(rec.Messages) > MaxMessages {
		rec.Messages = rec.Messages[:MaxMessages]
	}
	return &rec, nil
}
