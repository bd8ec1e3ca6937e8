package manager

import "context"

// acquire takes the manager lock, giving up when ctx is done. The returned
// release func must be deferred.
func (m *Manager) acquire(ctx context.Context) (func(), error) {
	select {
	case m.lock <- struct{}{}:
		return func() { <-m.lock }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// Busy reports whether the lock is currently held by a load, unload or
// generation.
func (m *Manager) Busy() bool { return len(m.lock) > 0 }
