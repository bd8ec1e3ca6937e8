package httpapi

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ggufchat/internal/persona"
	"ggufchat/internal/preset"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

func stateResponse(snap state.Snapshot) types.StateResponse {
	msgs := snap.Messages
	if msgs == nil {
		msgs = []types.Message{}
	}
	return types.StateResponse{
		SessionID:    snap.ID,
		Messages:     msgs,
		Params:       snap.Params,
		Roleplay:     snap.Roleplay,
		PersonaID:    snap.PersonaID,
		Theme:        snap.Theme,
		Presets:      snap.Presets,
		ActivePreset: preset.Match(snap.Params, snap.Presets),
		ModelPath:    snap.ModelPath,
		ModelParams:  snap.ModelParams,
	}
}

func (a *api) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(a.State.Snapshot()))
}

func (a *api) setParams(w http.ResponseWriter, r *http.Request) {
	var p types.GenerationParams
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := a.State.SetParams(p); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.State.Params())
}

func (a *api) setPersona(w http.ResponseWriter, r *http.Request) {
	var req types.PersonaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.State.SetPersona(req.ID, req.Roleplay); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) setTheme(w http.ResponseWriter, r *http.Request) {
	var t types.Theme
	if !decodeJSON(w, r, &t) {
		return
	}
	a.State.SetTheme(t)
	writeJSON(w, http.StatusOK, a.State.Theme())
}

func (a *api) clearMessages(w http.ResponseWriter, r *http.Request) {
	a.Chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listPersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, persona.All())
}

func (a *api) listPresets(w http.ResponseWriter, r *http.Request) {
	user := a.State.Presets()
	writeJSON(w, http.StatusOK, types.PresetsResponse{Keys: preset.Keys(user), Presets: preset.All(user)})
}

func (a *api) savePreset(w http.ResponseWriter, r *http.Request) {
	var req types.PresetSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key, err := a.State.SavePreset(req.Name, req.Description)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (a *api) deletePreset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if preset.IsBuiltin(key) {
		writeJSONError(w, http.StatusBadRequest, "built-in presets cannot be deleted")
		return
	}
	if !a.State.DeletePreset(key) {
		writeJSONError(w, http.StatusNotFound, "unknown preset "+key)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) applyPreset(w http.ResponseWriter, r *http.Request) {
	if err := a.State.ApplyPreset(chi.URLParam(r, "key")); err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.State.Params())
}

func (a *api) exportPresets(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := preset.Export(&buf, a.State.Presets()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="presets.json"`)
	w.Write(buf.Bytes())
}

func (a *api) importPresets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	imported, err := preset.Import(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.CountResponse{Added: a.State.MergePresets(imported)})
}
