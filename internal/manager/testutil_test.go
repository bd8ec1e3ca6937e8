package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// createModelFile creates a file of approximately sizeKB kilobytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeKB int) string {
	t.Helper()
	if sizeKB <= 0 {
		sizeKB = 1
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, sizeKB*1024), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// fakeEngine is a lightweight in-memory engine used for tests.
type fakeEngine struct {
	mu        sync.Mutex
	loadErr   error
	loadPanic bool
	tokens    []string
	genErr    error
	genPanic  bool
	// gate, when set, is received from before each token is emitted.
	gate chan struct{}

	loads     []string
	params    []types.LoadParams
	open      int
	closed    int
	releases  int
	lastGen   types.GenerationParams
	emitCount int
}

func (f *fakeEngine) Load(path string, params types.LoadParams) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadPanic {
		panic("boom")
	}
	f.loads = append(f.loads, path)
	f.params = append(f.params, params)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.open++
	return &fakeHandle{f: f}, nil
}

func (f *fakeEngine) ReleaseCache() error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) openHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open - f.closed
}

type fakeHandle struct {
	f      *fakeEngine
	closed bool
}

func (h *fakeHandle) Generate(ctx context.Context, prompt string, params types.GenerationParams, onToken func(string) bool) error {
	h.f.mu.Lock()
	tokens, genErr, genPanic, gate := h.f.tokens, h.f.genErr, h.f.genPanic, h.f.gate
	h.f.lastGen = params
	h.f.mu.Unlock()
	if genPanic {
		panic("generate boom")
	}
	for _, t := range tokens {
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		h.f.mu.Lock()
		h.f.emitCount++
		h.f.mu.Unlock()
		if !onToken(t) {
			return nil
		}
	}
	return genErr
}

func (h *fakeHandle) Close() error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.f.closed++
	}
	return nil
}

// newTestManager returns a manager over a fake engine with a fresh models
// directory and session state.
func newTestManager(t *testing.T, eng *fakeEngine) (*Manager, *state.Session, *MemoryPublisher) {
	t.Helper()
	st := state.New()
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{
		ModelsDir: t.TempDir(),
		Engine:    eng,
		State:     st,
		Publisher: pub,
	})
	return m, st, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
