package manager

import "strings"

// accumulator turns engine token increments into cumulative snapshots. It
// enforces the token budget and stop sequences. A suffix that could still
// grow into a stop sequence is held back until it is disambiguated, so every
// snapshot extends the previous one and truncation never retracts output.
type accumulator struct {
	maxTokens int
	stop      []string

	raw     string
	emitted int // len of the published prefix of raw
	tokens  int
	reason  FinishReason
}

func newAccumulator(maxTokens int, stop []string) *accumulator {
	return &accumulator{maxTokens: maxTokens, stop: stop}
}

// push appends one token and reports whether generation should continue.
func (a *accumulator) push(tok string) bool {
	a.tokens++
	a.raw += tok
	if idx := a.firstStop(); idx >= 0 {
		// Held-back text guarantees idx >= emitted.
		idx = max(idx, a.emitted)
		a.raw = a.raw[:idx]
		a.emitted = idx
		a.reason = FinishStopSequence
		return false
	}
	if a.maxTokens > 0 && a.tokens >= a.maxTokens {
		a.flush()
		a.reason = FinishLength
		return false
	}
	a.emitted = max(a.emitted, len(a.raw)-a.pendingStopPrefix())
	return true
}

// flush publishes any held-back text.
func (a *accumulator) flush() { a.emitted = len(a.raw) }

// snapshot returns the published text.
func (a *accumulator) snapshot() string { return a.raw[:a.emitted] }

// firstStop returns the earliest index where a stop sequence begins, or -1.
func (a *accumulator) firstStop() int {
	best := -1
	for _, s := range a.stop {
		if i := strings.Index(a.raw, s); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// pendingStopPrefix returns the length of the longest suffix of raw that is
// a proper prefix of some stop sequence.
func (a *accumulator) pendingStopPrefix() int {
	longest := 0
	for _, s := range a.stop {
		for n := min(len(s)-1, len(a.raw)); n > longest; n-- {
			if strings.HasSuffix(a.raw, s[:n]) {
				longest = n
				break
			}
		}
	}
	return longest
}
