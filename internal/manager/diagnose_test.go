package manager

import (
	"path/filepath"
	"testing"
)

func TestDiagnoseRunsPrompts(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"I", " am", " fine"}}
	m, _, _ := newTestManager(t, eng)
	p := createModelFile(t, t.TempDir(), "m.gguf", 1)
	r := m.Diagnose(testCtx(t), p, DiagnosticLoadParams(), nil)
	if !r.OK() {
		t.Fatalf("expected ok report: %+v", r)
	}
	if len(r.Prompts) != len(DiagnosticPrompts) {
		t.Fatalf("expected %d prompts, got %d", len(DiagnosticPrompts), len(r.Prompts))
	}
	if r.Prompts[0].Output != "I am fine" {
		t.Fatalf("output: %q", r.Prompts[0].Output)
	}
	if eng.params[0].GPULayers != -1 || !eng.params[0].Verbose {
		t.Fatalf("diagnostic load params not used: %+v", eng.params[0])
	}
	if eng.lastGen.MaxTokens != diagnosticMaxTokens || len(eng.lastGen.Stop) != 0 {
		t.Fatalf("diagnostic generation params: %+v", eng.lastGen)
	}
}

func TestDiagnoseMissingFile(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeEngine{})
	r := m.Diagnose(testCtx(t), filepath.Join(t.TempDir(), "x.gguf"), DiagnosticLoadParams(), nil)
	if r.OK() || r.Loaded || r.Error == "" {
		t.Fatalf("expected failed report: %+v", r)
	}
}
