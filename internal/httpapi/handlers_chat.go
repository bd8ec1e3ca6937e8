package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"ggufchat/internal/manager"
	"ggufchat/pkg/types"
)

// chat streams the reply as NDJSON. Every line carries the whole reply so
// far; the last line has done set and the finish reason. Errors raised before
// the first line become a JSON error response, later ones an error line.
func (a *api) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()

	ctx, cancel := workContext(r, chatTimeout)
	defer cancel()

	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	writer := io.Writer(w)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{rid: middleware.GetReqID(r.Context())})
	}
	enc := json.NewEncoder(writer)
	started := false
	begin := func() {
		if !started {
			observeFirstSnapshot(start)
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
	}

	res, err := a.Chat.Send(ctx, req.Message, func(snap string) bool {
		begin()
		if err := enc.Encode(types.ChatChunk{Text: snap}); err != nil {
			return false
		}
		flush()
		return true
	})
	if err != nil {
		if r.Context().Err() != nil {
			incChatStream("disconnected")
			return
		}
		if !started {
			status := writeError(w, err)
			incChatStream("error")
			logEnd(r, lvl, status, err, "chat end")
			return
		}
		_ = enc.Encode(types.ChatChunk{Text: res.Text, Done: true, Tokens: res.Tokens, Error: err.Error(), Hint: manager.EngineHint(err)})
		flush()
		incChatStream("error")
		logEnd(r, lvl, http.StatusOK, err, "chat end")
		return
	}
	begin()
	_ = enc.Encode(types.ChatChunk{Text: res.Text, Done: true, FinishReason: string(res.FinishReason), Tokens: res.Tokens})
	flush()
	incChatStream(string(res.FinishReason))
	if lvl >= LevelInfo {
		zlog.Info().Str("request_id", middleware.GetReqID(r.Context())).Int("tokens", res.Tokens).
			Str("finish_reason", string(res.FinishReason)).Dur("dur", time.Since(start)).Msg("chat end")
	}
}

func (a *api) stopChat(w http.ResponseWriter, r *http.Request) {
	a.Chat.Stop()
	w.WriteHeader(http.StatusAccepted)
}
