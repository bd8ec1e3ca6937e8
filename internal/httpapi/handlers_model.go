package httpapi

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"ggufchat/pkg/types"
)

func (a *api) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.Models.ListAvailable()
	if err != nil {
		writeError(w, err)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Dir: a.Models.ModelsDir(), Models: models})
}

func (a *api) modelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Models.Info())
}

// resolveModelPath maps a bare file name to the models directory. Paths with
// a directory component are used as given.
func (a *api) resolveModelPath(p string) string {
	if p == "" || filepath.IsAbs(p) || filepath.Base(p) != p {
		return p
	}
	return filepath.Join(a.Models.ModelsDir(), p)
}

func (a *api) loadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	lvl := requestLogLevel(r)
	ctx, cancel := workContext(r, 0)
	defer cancel()
	info, err := a.Models.Load(ctx, a.resolveModelPath(req.Path), req.Params)
	if err != nil {
		status := writeError(w, err)
		logEnd(r, lvl, status, err, "load end")
		return
	}
	writeJSON(w, http.StatusOK, info)
	logEnd(r, lvl, http.StatusOK, nil, "load end")
}

func (a *api) unloadModel(w http.ResponseWriter, r *http.Request) {
	a.Models.Unload()
	writeJSON(w, http.StatusOK, a.Models.Info())
}

// uploadModel streams the "file" part of a multipart body into the models
// directory. The optional name query parameter overrides the file name.
func (a *api) uploadModel(w http.ResponseWriter, r *http.Request) {
	lvl := requestLogLevel(r)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "missing file part")
			return
		}
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		start := time.Now()
		var written int64
		path, err := a.Models.Upload(part, 0, part.FileName(), r.URL.Query().Get("name"), func(n, _ int64) {
			written = n
		})
		part.Close()
		if err != nil {
			status := writeError(w, err)
			logEnd(r, lvl, status, err, "upload end")
			return
		}
		if lvl >= LevelInfo {
			zlog.Info().Str("path", path).Str("size", humanize.IBytes(uint64(written))).
				Dur("dur", time.Since(start)).Msg("model uploaded")
		}
		writeJSON(w, http.StatusCreated, types.UploadResponse{Path: path, SizeBytes: written})
		return
	}
}
