package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ggufchat/internal/manager"
	"ggufchat/internal/sessionstore"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

type mockModels struct {
	mu         sync.Mutex
	dir        string
	models     []types.Model
	info       manager.ModelInfo
	loadErr    error
	loadedPath string
	unloads    int
	uploadErr  error
	uploaded   []byte
	uploadName string
}

func (m *mockModels) ListAvailable() ([]types.Model, error) { return m.models, nil }
func (m *mockModels) ModelsDir() string                     { return m.dir }

func (m *mockModels) Info() manager.ModelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

func (m *mockModels) Load(ctx context.Context, path string, params types.LoadParams) (manager.ModelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return manager.ModelInfo{}, m.loadErr
	}
	m.loadedPath = path
	m.info = manager.ModelInfo{State: manager.StateLoaded, Path: path, Name: filepath.Base(path), Params: params}
	return m.info, nil
}

func (m *mockModels) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloads++
	m.info = manager.ModelInfo{State: manager.StateUnloaded}
}

func (m *mockModels) Upload(r io.Reader, size int64, originalName, customName string, progress func(written, total int64)) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.uploaded = b
	m.uploadName = originalName
	if customName != "" {
		m.uploadName = customName
	}
	progress(int64(len(b)), size)
	return filepath.Join(m.dir, m.uploadName), nil
}

type mockChat struct {
	snaps   []string
	res     manager.Result
	err     error
	got     string
	stopped bool
	resets  int
}

func (c *mockChat) Send(ctx context.Context, text string, onSnapshot func(string) bool) (manager.Result, error) {
	c.got = text
	for _, s := range c.snaps {
		if !onSnapshot(s) {
			break
		}
	}
	return c.res, c.err
}

func (c *mockChat) Stop()  { c.stopped = true }
func (c *mockChat) Reset() { c.resets++ }

type testServer struct {
	h      http.Handler
	models *mockModels
	chat   *mockChat
	st     *state.Session
	store  *sessionstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sessionstore.New(sessionstore.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("sessionstore: %v", err)
	}
	ts := &testServer{
		models: &mockModels{dir: "/models"},
		chat:   &mockChat{},
		st:     state.New(),
		store:  store,
	}
	ts.h = NewMux(Deps{Models: ts.models, Chat: ts.chat, Sessions: store, State: ts.st})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("json: %v (body=%q)", err, w.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	w := ts.do(http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "no model") {
		t.Fatalf("readyz status=%d body=%q", w.Code, w.Body.String())
	}
	ts.models.info = manager.ModelInfo{State: manager.StateLoaded}
	if w := ts.do(http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz loaded status=%d", w.Code)
	}
}

func TestModelsHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.models.models = []types.Model{{ID: "a.gguf"}, {ID: "b.gguf"}}
	w := ts.do(http.MethodGet, "/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	decodeBody(t, w, &body)
	if body.Dir != "/models" || len(body.Models) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLoadModel_ResolvesBareName(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/model/load", `{"path":"tiny.gguf","params":{"n_ctx":4096}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ts.models.loadedPath != filepath.Join("/models", "tiny.gguf") {
		t.Fatalf("loaded path=%q", ts.models.loadedPath)
	}
	var info manager.ModelInfo
	decodeBody(t, w, &info)
	if !info.Loaded() || info.Params.ContextLength != 4096 {
		t.Fatalf("info=%+v", info)
	}

	ts.do(http.MethodPost, "/model/load", `{"path":"/elsewhere/x.gguf"}`)
	if ts.models.loadedPath != "/elsewhere/x.gguf" {
		t.Fatalf("absolute path rewritten to %q", ts.models.loadedPath)
	}
}

func TestLoadModel_Errors(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(http.MethodPost, "/model/load", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing path status=%d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/model/load", strings.NewReader(`{"path":"x.gguf"}`))
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("no content-type status=%d", w.Code)
	}
	if w := ts.do(http.MethodPost, "/model/load", `{"path":`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", w.Code)
	}

	ts.models.loadErr = manager.ErrNotFound("/models/x.gguf")
	if w := ts.do(http.MethodPost, "/model/load", `{"path":"x.gguf"}`); w.Code != http.StatusNotFound {
		t.Fatalf("not found status=%d", w.Code)
	}
	ts.models.loadErr = manager.ErrDependencyUnavailable("llama support not built")
	if w := ts.do(http.MethodPost, "/model/load", `{"path":"x.gguf"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("dependency status=%d", w.Code)
	}
}

func TestUnloadModel(t *testing.T) {
	ts := newTestServer(t)
	ts.models.info = manager.ModelInfo{State: manager.StateLoaded, Path: "/models/a.gguf"}
	w := ts.do(http.MethodPost, "/model/unload", "")
	if w.Code != http.StatusOK || ts.models.unloads != 1 {
		t.Fatalf("status=%d unloads=%d", w.Code, ts.models.unloads)
	}
	var info manager.ModelInfo
	decodeBody(t, w, &info)
	if info.Loaded() {
		t.Fatalf("still loaded: %+v", info)
	}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "ignored")
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadModel(t *testing.T) {
	ts := newTestServer(t)
	body, ct := multipartBody(t, "file", "weights.gguf", []byte("GGUF-data"))
	req := httptest.NewRequest(http.MethodPost, "/models/upload?name=renamed", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.UploadResponse
	decodeBody(t, w, &resp)
	if resp.SizeBytes != int64(len("GGUF-data")) || string(ts.models.uploaded) != "GGUF-data" || ts.models.uploadName != "renamed" {
		t.Fatalf("resp=%+v name=%q", resp, ts.models.uploadName)
	}
}

func TestUploadModel_Rejects(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/models/upload", `{"x":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart status=%d", w.Code)
	}

	body, ct := multipartBody(t, "other", "weights.gguf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/models/upload", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "missing file part") {
		t.Fatalf("missing part status=%d body=%s", w.Code, w.Body.String())
	}

	ts.models.uploadErr = manager.ErrInvalidFormat("notes.txt", "not a model file")
	body, ct = multipartBody(t, "file", "notes.txt", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/models/upload", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid format status=%d", w.Code)
	}
}

func readChunks(t *testing.T, body io.Reader) []types.ChatChunk {
	t.Helper()
	var out []types.ChatChunk
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		var c types.ChatChunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, c)
	}
	return out
}

func TestChat_StreamsSnapshots(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.snaps = []string{"Hel", "Hello", "Hello there"}
	ts.chat.res = manager.Result{Text: "Hello there", Tokens: 3, FinishReason: manager.FinishStop}
	w := ts.do(http.MethodPost, "/chat", `{"message":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%s", ct)
	}
	if ts.chat.got != "hi" {
		t.Fatalf("message=%q", ts.chat.got)
	}
	chunks := readChunks(t, w.Body)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(chunks))
	}
	prev := ""
	for _, c := range chunks[:3] {
		if c.Done || !strings.HasPrefix(c.Text, prev) {
			t.Fatalf("snapshot not monotone: prev=%q chunk=%+v", prev, c)
		}
		prev = c.Text
	}
	last := chunks[3]
	if !last.Done || last.FinishReason != "stop" || last.Tokens != 3 || last.Text != "Hello there" {
		t.Fatalf("final chunk=%+v", last)
	}
}

func TestChat_ErrorBeforeFirstLine(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.err = manager.ErrNoModelLoaded()
	w := ts.do(http.MethodPost, "/chat", `{"message":"hi"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	decodeBody(t, w, &body)
	if body.Code != http.StatusConflict {
		t.Fatalf("body=%+v", body)
	}
}

func TestChat_ErrorAfterStreaming(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.snaps = []string{"par"}
	ts.chat.res = manager.Result{Text: "partial"}
	ts.chat.err = errors.New("engine died")
	w := ts.do(http.MethodPost, "/chat", `{"message":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	chunks := readChunks(t, w.Body)
	last := chunks[len(chunks)-1]
	if !last.Done || last.Error == "" || last.Text != "partial" {
		t.Fatalf("final chunk=%+v", last)
	}
}

func TestChat_NoSnapshotsStillEnds(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.res = manager.Result{FinishReason: manager.FinishCancelled}
	w := ts.do(http.MethodPost, "/chat", `{"message":"hi"}`)
	chunks := readChunks(t, w.Body)
	if w.Code != http.StatusOK || len(chunks) != 1 || chunks[0].FinishReason != "cancelled" {
		t.Fatalf("status=%d chunks=%+v", w.Code, chunks)
	}
}

func TestChatStop(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(http.MethodPost, "/chat/stop", ""); w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	if !ts.chat.stopped {
		t.Fatal("stop not forwarded")
	}
}

func TestState_GetAndUpdate(t *testing.T) {
	ts := newTestServer(t)
	var st types.StateResponse
	decodeBody(t, ts.do(http.MethodGet, "/state", ""), &st)
	if st.SessionID == "" || st.ActivePreset != "balanced" || st.Messages == nil {
		t.Fatalf("state=%+v", st)
	}

	w := ts.do(http.MethodPut, "/state/params", `{"temperature":0.3,"top_p":0.85,"top_k":20,"repeat_penalty":1.2,"frequency_penalty":0.1,"max_tokens":512}`)
	if w.Code != http.StatusOK {
		t.Fatalf("params status=%d body=%s", w.Code, w.Body.String())
	}
	decodeBody(t, ts.do(http.MethodGet, "/state", ""), &st)
	if st.ActivePreset != "precise" {
		t.Fatalf("active preset=%q", st.ActivePreset)
	}
	if w := ts.do(http.MethodPut, "/state/params", `{"temperature":9,"top_p":0.5,"top_k":1,"repeat_penalty":1,"max_tokens":1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid params status=%d", w.Code)
	}

	if w := ts.do(http.MethodPut, "/state/persona", `{"id":"pirate","roleplay":true}`); w.Code != http.StatusNoContent {
		t.Fatalf("persona status=%d", w.Code)
	}
	if id, rp := ts.st.Persona(); id != "pirate" || !rp {
		t.Fatalf("persona=%q roleplay=%v", id, rp)
	}
	if w := ts.do(http.MethodPut, "/state/persona", `{"id":"nobody"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown persona status=%d", w.Code)
	}

	if w := ts.do(http.MethodPut, "/state/theme", `{"primary_color":"#000000"}`); w.Code != http.StatusOK {
		t.Fatalf("theme status=%d", w.Code)
	}
	if ts.st.Theme().PrimaryColor != "#000000" {
		t.Fatalf("theme=%+v", ts.st.Theme())
	}

	if w := ts.do(http.MethodDelete, "/state/messages", ""); w.Code != http.StatusNoContent || ts.chat.resets != 1 {
		t.Fatalf("clear status=%d resets=%d", w.Code, ts.chat.resets)
	}
}

func TestPersonas(t *testing.T) {
	ts := newTestServer(t)
	var list []struct {
		ID string `json:"id"`
	}
	decodeBody(t, ts.do(http.MethodGet, "/personas", ""), &list)
	if len(list) == 0 || list[0].ID != "helpful_assistant" {
		t.Fatalf("personas=%+v", list)
	}
}

func TestPresets_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodPost, "/presets", `{"name":"My Style","description":"mine"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status=%d", w.Code)
	}
	var saved map[string]string
	decodeBody(t, w, &saved)
	if saved["key"] != "my_style" {
		t.Fatalf("key=%q", saved["key"])
	}

	var list types.PresetsResponse
	decodeBody(t, ts.do(http.MethodGet, "/presets", ""), &list)
	if list.Keys[0] != "balanced" || list.Keys[len(list.Keys)-1] != "my_style" {
		t.Fatalf("keys=%v", list.Keys)
	}

	if w := ts.do(http.MethodPost, "/presets/creative/apply", ""); w.Code != http.StatusOK {
		t.Fatalf("apply status=%d", w.Code)
	}
	if ts.st.Params().Temperature != 1.0 {
		t.Fatalf("params=%+v", ts.st.Params())
	}
	if w := ts.do(http.MethodPost, "/presets/nope/apply", ""); w.Code != http.StatusNotFound {
		t.Fatalf("apply unknown status=%d", w.Code)
	}

	exp := ts.do(http.MethodGet, "/presets/export", "")
	if exp.Code != http.StatusOK || !strings.Contains(exp.Body.String(), "my_style") {
		t.Fatalf("export status=%d body=%s", exp.Code, exp.Body.String())
	}

	if w := ts.do(http.MethodDelete, "/presets/balanced", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("delete builtin status=%d", w.Code)
	}
	if w := ts.do(http.MethodDelete, "/presets/my_style", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	if w := ts.do(http.MethodDelete, "/presets/my_style", ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete twice status=%d", w.Code)
	}

	w = ts.do(http.MethodPost, "/presets/import", exp.Body.String())
	var added types.CountResponse
	decodeBody(t, w, &added)
	if w.Code != http.StatusOK || added.Added != 1 {
		t.Fatalf("import status=%d added=%d", w.Code, added.Added)
	}
	if w := ts.do(http.MethodPost, "/presets/import", `{"balanced":{"name":"x"}}`); w.Code != http.StatusBadRequest {
		t.Fatalf("import builtin key status=%d", w.Code)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	if err := ts.st.AppendMessage(types.RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := ts.st.AppendMessage(types.RoleAssistant, "hi there"); err != nil {
		t.Fatal(err)
	}

	w := ts.do(http.MethodPost, "/sessions", `{"name":"first"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status=%d body=%s", w.Code, w.Body.String())
	}
	var saved types.PathResponse
	decodeBody(t, w, &saved)
	if filepath.Base(saved.Path) != "first.json" {
		t.Fatalf("path=%q", saved.Path)
	}
	if w := ts.do(http.MethodPost, "/sessions", ""); w.Code != http.StatusCreated {
		t.Fatalf("default-name save status=%d", w.Code)
	}

	var list []sessionstore.Summary
	decodeBody(t, ts.do(http.MethodGet, "/sessions", ""), &list)
	if len(list) != 2 || list[0].Preview != "hello → hi there" {
		t.Fatalf("list=%+v", list)
	}

	var rec sessionstore.Record
	decodeBody(t, ts.do(http.MethodGet, "/sessions/first", ""), &rec)
	if len(rec.Messages) != 2 {
		t.Fatalf("record=%+v", rec)
	}

	ts.st.ClearMessages()
	w = ts.do(http.MethodPost, "/sessions/first/apply", "")
	if w.Code != http.StatusOK || len(ts.st.Messages()) != 2 {
		t.Fatalf("apply status=%d messages=%d", w.Code, len(ts.st.Messages()))
	}

	if w := ts.do(http.MethodDelete, "/sessions/first", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	if w := ts.do(http.MethodGet, "/sessions/first", ""); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d", w.Code)
	}
	if w := ts.do(http.MethodDelete, "/sessions/first", ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete twice status=%d", w.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	SetCORSOrigins([]string{"http://ui.example"})
	defer SetCORSOrigins(nil)
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/state", nil)
	req.Header.Set("Origin", "http://ui.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	ts.h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.example" {
		t.Fatalf("allow-origin=%q status=%d", got, w.Code)
	}
}

func TestSecurityHeader(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/healthz", "")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
}
