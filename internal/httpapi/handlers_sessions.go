package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ggufchat/internal/sessionstore"
	"ggufchat/pkg/types"
)

func (a *api) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := a.Sessions.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []sessionstore.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// saveSession accepts an empty body as well as a SessionSaveRequest.
func (a *api) saveSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionSaveRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	path, err := a.Sessions.Save(a.State.Snapshot(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.PathResponse{Path: path})
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Sessions.Load(a.Sessions.Path(chi.URLParam(r, "name")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// applySession restores a stored session into the live state. The recorded
// model is reported but not loaded.
func (a *api) applySession(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Sessions.Load(a.Sessions.Path(chi.URLParam(r, "name")))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sessionstore.Apply(a.State, rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(a.State.Snapshot()))
}

func (a *api) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(a.Sessions.Path(chi.URLParam(r, "name"))); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
