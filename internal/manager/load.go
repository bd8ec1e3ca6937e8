package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ggufchat/internal/common/fsutil"
	"ggufchat/internal/registry"
	"ggufchat/pkg/types"
)

// Load replaces the active model with the file at path. Caller params are
// merged over the load defaults. A missing or misnamed file is rejected
// before the lock is taken, leaving any loaded model in place; an engine
// failure leaves the manager unloaded.
func (m *Manager) Load(ctx context.Context, path string, params types.LoadParams) (ModelInfo, error) {
	path, err := fsutil.ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return m.Info(), err
	}
	if path == "" {
		return m.Info(), ErrNotFound("(unspecified)")
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m.Info(), ErrNotFound(path)
		}
		return m.Info(), fmt.Errorf("stat model: %w", err)
	}
	if fi.IsDir() {
		return m.Info(), ErrInvalidFormat(path, "is a directory")
	}
	if !registry.IsModelFile(fi.Name()) {
		return m.Info(), ErrInvalidFormat(path, "expected "+types.ModelExt+" extension")
	}
	if fi.Size() > largeModelBytes {
		m.log.Warn().Str("path", path).Str("size", humanize.IBytes(uint64(fi.Size()))).
			Msg("large model file, loading may take some time")
	}
	lp := m.loadDefaults.Merge(params)

	release, err := m.acquire(ctx)
	if err != nil {
		return m.Info(), err
	}
	defer release()

	m.unloadLocked()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m.publisher.Publish(Event{Name: "load_start", Model: name, Fields: map[string]any{"path": path}})
	m.log.Info().Str("path", path).Int("n_ctx", lp.ContextLength).Int("n_batch", lp.BatchSize).
		Int("n_threads", lp.Threads).Int("n_gpu_layers", lp.GPULayers).Msg("loading model")

	start := time.Now()
	h, err := m.engineLoad(path, lp)
	took := time.Since(start)
	if err != nil {
		err = newEngineError("load", err)
		loadsTotal.WithLabelValues("failure").Inc()
		m.publisher.Publish(Event{Name: "load_failed", Model: name, Fields: map[string]any{"error": err.Error()}})
		m.log.Error().Err(err).Str("path", path).Str("hint", EngineHint(err)).Msg("model load failed")
		return m.Info(), err
	}

	info := &ModelInfo{
		State:        StateLoaded,
		Path:         path,
		Name:         name,
		Params:       lp,
		SizeBytes:    fi.Size(),
		LoadDuration: took,
		LoadedAt:     time.Now(),
	}
	m.handle = h
	m.info.Store(info)
	if m.st != nil {
		m.st.SetModel(path, lp)
	}
	loadsTotal.WithLabelValues("success").Inc()
	loadDuration.Observe(took.Seconds())
	modelLoaded.Set(1)
	m.publisher.Publish(Event{Name: "load_done", Model: name, Fields: map[string]any{"duration_ms": took.Milliseconds(), "size_bytes": fi.Size()}})
	m.log.Info().Str("model", name).Str("size", humanize.IBytes(uint64(fi.Size()))).
		Dur("took", took).Msg("model loaded")
	return *info, nil
}

// engineLoad calls the engine, converting a panic into an error.
func (m *Manager) engineLoad(path string, lp types.LoadParams) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, errPanic("load", r)
		}
	}()
	h, err = m.engine.Load(path, lp)
	if err == nil && h == nil {
		err = errors.New("engine returned no handle")
	}
	return h, err
}
