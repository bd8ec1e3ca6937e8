package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ggufchat/internal/manager"
	"ggufchat/internal/persona"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

type fakeGen struct {
	prompt  string
	params  types.GenerationParams
	snaps   []string
	res     manager.Result
	err     error
	stopped bool
	st      *state.Session
}

func (f *fakeGen) GenerateWith(ctx context.Context, prompt string, params types.GenerationParams, onSnapshot func(string) bool) (manager.Result, error) {
	f.prompt, f.params = prompt, params
	f.stopped = f.st != nil && f.st.StopRequested()
	for _, s := range f.snaps {
		if onSnapshot != nil && !onSnapshot(s) {
			break
		}
	}
	return f.res, f.err
}

func TestSendRecordsTurn(t *testing.T) {
	st := state.New()
	gen := &fakeGen{snaps: []string{"Hel", "Hello"}, res: manager.Result{Text: "Hello ", FinishReason: manager.FinishStop}}
	svc := New(gen, st, nil)

	var seen []string
	res, err := svc.Send(context.Background(), "  Hi  ", func(s string) bool {
		seen = append(seen, s)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, manager.FinishStop, res.FinishReason)
	assert.Equal(t, []string{"Hel", "Hello"}, seen)
	assert.Equal(t, "User: Hi\n\nAssistant: ", gen.prompt)
	assert.Equal(t, state.DefaultParams(), gen.params)
	assert.Equal(t, []types.Message{
		{Role: types.RoleUser, Content: "Hi"},
		{Role: types.RoleAssistant, Content: "Hello"},
	}, st.Messages())
}

func TestSendUsesPersonaAndHistory(t *testing.T) {
	st := state.New()
	require.NoError(t, st.SetPersona("pirate", true))
	gen := &fakeGen{res: manager.Result{Text: "Arr"}}
	svc := New(gen, st, nil)
	_, err := svc.Send(context.Background(), "first", nil)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), "second", nil)
	require.NoError(t, err)

	p, _ := persona.Lookup("pirate")
	assert.Equal(t, p.Instructions+"\n\nUser: first\n\nAssistant: Arr\n\nUser: second\n\nAssistant: ", gen.prompt)
	assert.Len(t, st.Messages(), 4)
}

func TestSendResetsStopFlag(t *testing.T) {
	st := state.New()
	st.RequestStop()
	gen := &fakeGen{st: st, res: manager.Result{Text: "ok"}}
	_, err := New(gen, st, nil).Send(context.Background(), "go", nil)
	require.NoError(t, err)
	assert.False(t, gen.stopped)
}

func TestSendFailureLeavesHistory(t *testing.T) {
	st := state.New()
	gen := &fakeGen{err: manager.ErrNoModelLoaded()}
	_, err := New(gen, st, nil).Send(context.Background(), "hello", nil)
	assert.True(t, manager.IsNoModelLoaded(err))
	assert.Empty(t, st.Messages())
}

func TestSendKeepsPartialReplyOnError(t *testing.T) {
	st := state.New()
	cause := errors.New("engine died")
	gen := &fakeGen{res: manager.Result{Text: "partial"}, err: cause}
	_, err := New(gen, st, nil).Send(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, cause)
	require.Len(t, st.Messages(), 2)
	assert.Equal(t, "partial", st.Messages()[1].Content)
}

func TestSendRejectsBlank(t *testing.T) {
	_, err := New(&fakeGen{}, state.New(), nil).Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestStopAndReset(t *testing.T) {
	st := state.New()
	svc := New(&fakeGen{res: manager.Result{Text: "x"}}, st, nil)
	_, err := svc.Send(context.Background(), "a", nil)
	require.NoError(t, err)
	svc.Stop()
	assert.True(t, st.StopRequested())
	svc.Reset()
	assert.Empty(t, st.Messages())
}

// gatedGen holds its first generation until release is closed.
type gatedGen struct {
	st      *state.Session
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	prompts []string
	stopped []bool
}

func newGatedGen(st *state.Session) *gatedGen {
	return &gatedGen{st: st, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGen) GenerateWith(ctx context.Context, prompt string, params types.GenerationParams, onSnapshot func(string) bool) (manager.Result, error) {
	g.mu.Lock()
	n := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if n == 0 {
		close(g.started)
		<-g.release
	}
	g.mu.Lock()
	g.stopped = append(g.stopped, g.st.StopRequested())
	g.mu.Unlock()
	return manager.Result{Text: fmt.Sprintf("reply%d", n+1), FinishReason: manager.FinishStop}, nil
}

func TestSendQueuesTurns(t *testing.T) {
	st := state.New()
	gen := newGatedGen(st)
	svc := New(gen, st, nil)

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Send(context.Background(), "first", nil)
		errs <- err
	}()
	<-gen.started
	go func() {
		_, err := svc.Send(context.Background(), "second", nil)
		errs <- err
	}()
	// Let the second turn reach the queue before stopping the first.
	time.Sleep(50 * time.Millisecond)
	svc.Stop()
	close(gen.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.prompts, 2)
	assert.Equal(t, []bool{true, false}, gen.stopped, "stop must reach the running turn only")
	assert.Equal(t, "User: first\n\nAssistant: reply1\n\nUser: second\n\nAssistant: ", gen.prompts[1])
	assert.Equal(t, []types.Message{
		{Role: types.RoleUser, Content: "first"},
		{Role: types.RoleAssistant, Content: "reply1"},
		{Role: types.RoleUser, Content: "second"},
		{Role: types.RoleAssistant, Content: "reply2"},
	}, st.Messages())
}

func TestSendQueuedTurnHonorsContext(t *testing.T) {
	st := state.New()
	gen := newGatedGen(st)
	svc := New(gen, st, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), "first", nil)
		done <- err
	}()
	<-gen.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Send(ctx, "second", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gen.release)
	require.NoError(t, <-done)
	assert.Len(t, st.Messages(), 2)
}
