package manager

import (
	"context"
	"runtime/debug"
)

// Unload releases the active model. It is idempotent and never fails; close
// and cache-release errors are logged only. Unload waits for any running
// generation to finish.
func (m *Manager) Unload() {
	release, _ := m.acquire(context.Background())
	defer release()
	m.unloadLocked()
}

// unloadLocked must be called with the lock held.
func (m *Manager) unloadLocked() {
	if m.handle == nil {
		return
	}
	prev := m.Info()
	if err := m.closeHandle(); err != nil {
		m.log.Warn().Err(err).Str("model", prev.Name).Msg("close model handle")
	}
	m.handle = nil
	m.info.Store(&ModelInfo{State: StateUnloaded})

	// Forces a collection and returns freed pages to the OS.
	debug.FreeOSMemory()
	if cr, ok := m.engine.(CacheReleaser); ok {
		if err := cr.ReleaseCache(); err != nil {
			m.log.Debug().Err(err).Msg("release accelerator cache")
		}
	}
	if m.st != nil {
		m.st.ClearModel()
	}
	modelLoaded.Set(0)
	m.publisher.Publish(Event{Name: "unload_done", Model: prev.Name, Fields: map[string]any{}})
	m.log.Info().Str("model", prev.Name).Msg("model unloaded")
}

func (m *Manager) closeHandle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic("close", r)
		}
	}()
	return m.handle.Close()
}
