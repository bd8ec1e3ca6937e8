package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ggufchat/internal/manager"
	"ggufchat/internal/sessionstore"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// ModelService is the model lifecycle surface used by the HTTP layer.
// *manager.Manager implements it.
type ModelService interface {
	ListAvailable() ([]types.Model, error)
	ModelsDir() string
	Info() manager.ModelInfo
	Load(ctx context.Context, path string, params types.LoadParams) (manager.ModelInfo, error)
	Unload()
	Upload(r io.Reader, size int64, originalName, customName string, progress func(written, total int64)) (string, error)
}

// ChatService runs conversation turns. *chat.Service implements it.
type ChatService interface {
	Send(ctx context.Context, text string, onSnapshot func(string) bool) (manager.Result, error)
	Stop()
	Reset()
}

// SessionService persists session snapshots. *sessionstore.Store implements it.
type SessionService interface {
	Save(snap state.Snapshot, name string) (string, error)
	Load(path string) (*sessionstore.Record, error)
	List() ([]sessionstore.Summary, error)
	Delete(path string) error
	Path(name string) string
}

// Deps bundles the services behind the API. All fields are required.
type Deps struct {
	Models   ModelService
	Chat     ChatService
	Sessions SessionService
	State    *state.Session
}

type api struct {
	Deps
}

func NewMux(d Deps) http.Handler {
	a := &api{Deps: d}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(corsAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/models", a.listModels)
	r.Post("/models/upload", a.uploadModel)
	r.Get("/model", a.modelInfo)
	r.Post("/model/load", a.loadModel)
	r.Post("/model/unload", a.unloadModel)

	r.Post("/chat", a.chat)
	r.Post("/chat/stop", a.stopChat)

	r.Get("/state", a.getState)
	r.Put("/state/params", a.setParams)
	r.Put("/state/persona", a.setPersona)
	r.Put("/state/theme", a.setTheme)
	r.Delete("/state/messages", a.clearMessages)

	r.Get("/personas", a.listPersonas)

	r.Route("/presets", func(r chi.Router) {
		r.Get("/", a.listPresets)
		r.Post("/", a.savePreset)
		r.Get("/export", a.exportPresets)
		r.Post("/import", a.importPresets)
		r.Delete("/{key}", a.deletePreset)
		r.Post("/{key}/apply", a.applyPreset)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", a.listSessions)
		r.Post("/", a.saveSession)
		r.Get("/{name}", a.getSession)
		r.Post("/{name}/apply", a.applySession)
		r.Delete("/{name}", a.deleteSession)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.Models.Info().Loaded() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no model loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodeJSON enforces the JSON content type and body limit, then decodes
// into v. It writes the error response itself and reports whether decoding
// succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies also land here; report them as plain bad requests.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("encode response")
	}
}
