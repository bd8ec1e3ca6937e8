// Package manager owns the lifecycle of the single active GGUF model and
// coordinates generation against it. It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, constructor, simple getters, ListAvailable.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, ModelInfo, FinishReason, Result.
//   - errors.go: error types and predicates (IsNotFound, IsEngineFailure, ...).
//   - memhint.go: text heuristic flagging likely memory exhaustion.
//   - admission.go: the lock shared by load, unload and generation.
//   - load.go, unload.go: handle transitions.
//   - generate.go: Generate, Stream and the per-token cancellation loop.
//   - stream.go: cumulative snapshots, token budget and stop sequences.
//   - upload.go: chunked copies into the models directory.
//   - diagnose.go: load-and-prompt smoke test.
//   - events.go, metrics.go: lifecycle events and Prometheus collectors.
//
// Build tags and runtimes:
//
//   - In-process llama:
//     Uses the go-llama.cpp engine. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: adapter_llama_stub.go.
//
// Tests substitute the Engine interface with in-memory fakes.
package manager
