package manager

import (
	"errors"
	"testing"
)

func TestClassifyMemoryHint(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("failed to load model"), ""},
		{errors.New("CUDA error: out of memory"), MemoryHintText},
		{errors.New("ggml_aligned_malloc: insufficient memory (attempted to allocate 9000 MB)"), MemoryHintText},
		{errors.New("std::bad_alloc"), MemoryHintText},
		{errors.New("Failed To Allocate buffer"), MemoryHintText},
	}
	for _, c := range cases {
		if got := ClassifyMemoryHint(c.err); got != c.want {
			t.Fatalf("ClassifyMemoryHint(%v) = %q; want %q", c.err, got, c.want)
		}
	}
}

func TestEngineErrorWrapsCause(t *testing.T) {
	cause := errors.New("not enough memory")
	err := newEngineError("load", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped")
	}
	if EngineHint(err) == "" || EngineHint(cause) != "" {
		t.Fatalf("hint attached to the wrong error")
	}
}
