package manager

import (
	"runtime"

	"github.com/rs/zerolog"

	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultContextLength = 2048
	defaultBatchSize     = 512
	defaultMaxTokens     = 256
	defaultTemperature   = 0.7
	defaultTopP          = 0.9
	defaultTopK          = 40
	defaultRepeatPenalty = 1.05

	// largeModelBytes triggers a slow-load warning.
	largeModelBytes = 20 << 30
)

// DefaultStopSequences end generation at user-turn markers.
var DefaultStopSequences = []string{"User:", "USER:", "<|user|>", "<|im_end|>"}

// DefaultLoadParams returns the load defaults; Threads follows the host CPU count.
func DefaultLoadParams() types.LoadParams {
	return types.LoadParams{
		ContextLength: defaultContextLength,
		BatchSize:     defaultBatchSize,
		Threads:       runtime.NumCPU(),
	}
}

// DefaultGenerationParams returns the generation defaults.
func DefaultGenerationParams() types.GenerationParams {
	return types.GenerationParams{
		Temperature:   defaultTemperature,
		TopP:          defaultTopP,
		TopK:          defaultTopK,
		RepeatPenalty: defaultRepeatPenalty,
		MaxTokens:     defaultMaxTokens,
		Stop:          append([]string(nil), DefaultStopSequences...),
	}
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// ModelsDir receives uploads and is enumerated by ListAvailable.
	ModelsDir string
	// Engine loads models. Nil selects the llama.cpp engine.
	Engine Engine
	// State is the conversation state shared with the rest of the
	// application. The manager records the loaded model in it and polls its
	// stop flag between tokens. May be nil.
	State *state.Session
	// LoadDefaults override DefaultLoadParams field by field.
	LoadDefaults types.LoadParams
	// GenerationDefaults replace DefaultGenerationParams when non-zero.
	GenerationDefaults *types.GenerationParams
	Logger             *zerolog.Logger
	Publisher          EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		modelsDir:    cfg.ModelsDir,
		engine:       cfg.Engine,
		st:           cfg.State,
		loadDefaults: DefaultLoadParams().Merge(cfg.LoadDefaults),
		genDefaults:  DefaultGenerationParams(),
		publisher:    cfg.Publisher,
		lock:         make(chan struct{}, 1),
	}
	if cfg.GenerationDefaults != nil {
		m.genDefaults = cfg.GenerationDefaults.Clone()
	}
	if m.engine == nil {
		m.engine = NewLlamaEngine()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	m.info.Store(&ModelInfo{State: StateUnloaded})
	return m
}
