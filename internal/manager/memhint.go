package manager

import "strings"

// MemoryHintText is attached to engine failures that look like memory
// exhaustion.
const MemoryHintText = "possible memory issue: try reducing context length or GPU layers"

// memoryPatterns are lowercase fragments seen in allocator and CUDA failures.
var memoryPatterns = []string{
	"insufficient memory",
	"out of memory",
	"not enough memory",
	"cannot allocate memory",
	"failed to allocate",
	"unable to allocate",
	"cudamalloc failed",
	"bad_alloc",
}

// ClassifyMemoryHint is a text heuristic over an engine error. It returns
// MemoryHintText when the message matches a known allocation-failure pattern
// and "" otherwise. A match is a hint, not a diagnosis; engines word these
// errors differently and the list will miss some.
func ClassifyMemoryHint(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, p := range memoryPatterns {
		if strings.Contains(msg, p) {
			return MemoryHintText
		}
	}
	return ""
}
