package manager

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"ggufchat/internal/registry"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// Manager owns the single active model handle. Load, Unload and generation
// all run under one lock, so a generation never observes a handle being
// replaced underneath it.
type Manager struct {
	modelsDir    string
	engine       Engine
	st           *state.Session
	loadDefaults types.LoadParams
	genDefaults  types.GenerationParams
	log          zerolog.Logger
	publisher    EventPublisher

	// lock has capacity 1; holding a slot grants exclusive use of handle.
	lock   chan struct{}
	handle Handle

	// info is replaced under lock and read without it.
	info atomic.Pointer[ModelInfo]
}

// New constructs a Manager with the llama.cpp engine and package defaults.
func New(modelsDir string, st *state.Session) *Manager {
	return NewWithConfig(ManagerConfig{ModelsDir: modelsDir, State: st})
}

// Info returns the active model description. It never blocks, so it is safe
// to call while a generation is running.
func (m *Manager) Info() ModelInfo {
	return *m.info.Load()
}

// Ready reports whether a model is loaded.
func (m *Manager) Ready() bool { return m.Info().Loaded() }

// ModelsDir returns the managed models directory.
func (m *Manager) ModelsDir() string { return m.modelsDir }

// LoadDefaults returns the load parameters applied beneath caller overrides.
func (m *Manager) LoadDefaults() types.LoadParams { return m.loadDefaults }

// GenerationDefaults returns a copy of the generation defaults.
func (m *Manager) GenerationDefaults() types.GenerationParams { return m.genDefaults.Clone() }

// ListAvailable enumerates model files in the managed directory, creating it
// when absent.
func (m *Manager) ListAvailable() ([]types.Model, error) {
	if err := os.MkdirAll(m.modelsDir, 0o755); err != nil {
		return nil, err
	}
	return registry.LoadDir(m.modelsDir)
}
