package types

// ModelExt is the file extension of model files the engine accepts.
const ModelExt = ".gguf"

// Model represents a model file discovered in the managed models directory.
type Model struct {
	// File name, used as a stable identifier.
	// example: tinyllama-1.1b.Q4_K_M.gguf
	ID string `json:"id" example:"tinyllama-1.1b.Q4_K_M.gguf"`
	// Human-friendly name (file name without extension).
	// example: tinyllama-1.1b.Q4_K_M
	Name string `json:"name" example:"tinyllama-1.1b.Q4_K_M"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/tinyllama-1.1b.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/tinyllama-1.1b.Q4_K_M.gguf"`
	// File size in bytes.
	// example: 668788096
	SizeBytes int64 `json:"size_bytes" example:"668788096"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Label is the capitalized role name used in assembled prompts.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	}
	return ""
}

// Message is a single conversation turn. A conversation is an ordered
// []Message in chronological order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Theme holds the presentation colors persisted with a session.
type Theme struct {
	PrimaryColor   string `json:"primary_color" yaml:"primary_color" toml:"primary_color"`
	AssistantColor string `json:"assistant_color" yaml:"assistant_color" toml:"assistant_color"`
	UserColor      string `json:"user_color" yaml:"user_color" toml:"user_color"`
}

// DefaultTheme returns the stock colors.
func DefaultTheme() Theme {
	return Theme{PrimaryColor: "#2A9D8F", AssistantColor: "#E9ECEF", UserColor: "#F0F7FF"}
}

// Preset is a named bundle of generation parameters.
type Preset struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  GenerationParams `json:"parameters"`
}
