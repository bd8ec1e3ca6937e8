package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model file not found: /models/x.gguf
	Error string `json:"error" example:"model file not found: /models/x.gguf"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
	// Advisory hint, set for engine failures that look like memory exhaustion.
	Hint string `json:"hint,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// Directory the models were read from.
	Dir string `json:"dir"`
	// Model files sorted by name.
	Models []Model `json:"models"`
}

// LoadRequest is the body of POST /model/load.
type LoadRequest struct {
	// Absolute path, or a file name inside the models directory.
	// example: tinyllama-1.1b.Q4_K_M.gguf
	Path string `json:"path" example:"tinyllama-1.1b.Q4_K_M.gguf"`
	// Optional overrides; zero fields take the server defaults.
	Params LoadParams `json:"params"`
}

// UploadResponse is returned by POST /models/upload.
type UploadResponse struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	// example: Tell me about the sea.
	Message string `json:"message" example:"Tell me about the sea."`
}

// ChatChunk is one NDJSON line of a /chat response. Text is the whole reply
// so far, not an increment. The last line has Done set.
type ChatChunk struct {
	Text         string `json:"text,omitempty"`
	Done         bool   `json:"done,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Tokens       int    `json:"tokens,omitempty"`
	Error        string `json:"error,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// PersonaRequest is the body of PUT /state/persona.
type PersonaRequest struct {
	// example: pirate
	ID       string `json:"id" example:"pirate"`
	Roleplay bool   `json:"roleplay"`
}

// StateResponse is returned by GET /state.
type StateResponse struct {
	SessionID    string            `json:"session_id"`
	Messages     []Message         `json:"messages"`
	Params       GenerationParams  `json:"generation_params"`
	Roleplay     bool              `json:"roleplay_mode"`
	PersonaID    string            `json:"selected_persona"`
	Theme        Theme             `json:"theme_settings"`
	Presets      map[string]Preset `json:"user_presets"`
	ActivePreset string            `json:"active_preset"`
	ModelPath    string            `json:"model_path,omitempty"`
	ModelParams  LoadParams        `json:"model_params"`
}

// PresetSaveRequest is the body of POST /presets.
type PresetSaveRequest struct {
	// example: My Style
	Name        string `json:"name" example:"My Style"`
	Description string `json:"description"`
}

// PresetsResponse is returned by GET /presets.
type PresetsResponse struct {
	// Keys in display order: built-ins first, then user presets.
	Keys    []string          `json:"keys"`
	Presets map[string]Preset `json:"presets"`
}

// SessionSaveRequest is the body of POST /sessions. An empty name selects a
// timestamped default.
type SessionSaveRequest struct {
	Name string `json:"name,omitempty"`
}

// PathResponse reports a file written or affected by a request.
type PathResponse struct {
	Path string `json:"path"`
}

// CountResponse reports how many entries a request added.
type CountResponse struct {
	Added int `json:"added"`
}
