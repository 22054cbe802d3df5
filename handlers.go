package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kwv/roofmesh/mesh"
	"go.uber.org/zap"
)

// rebuildFunc reconstructs one building on demand.
type rebuildFunc func(ctx context.Context, name string) (*mesh.Result, error)

var contentTypes = map[string]string{
	mesh.FormatOBJ:     "model/obj",
	mesh.FormatGeoJSON: "application/geo+json",
	mesh.FormatSVG:     "image/svg+xml",
	mesh.FormatPNG:     "image/png",
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(store *mesh.ResultStore, rebuild rebuildFunc, twoSided bool, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Debug("health check", zap.String("remote", r.RemoteAddr))
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Buildings int       `json:"buildings"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Buildings: store.Len(),
		}
		if err := summaryJSON(w, status); err != nil {
			log.Warn("encoding health status", zap.Error(err))
		}
	})

	mux.HandleFunc("GET /buildings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := summaryJSON(w, store.Summaries()); err != nil {
			log.Warn("encoding summaries", zap.Error(err))
		}
	})

	// /buildings/{name} is the summary, /buildings/{name}.{format} the result
	// in one of the output formats.
	mux.HandleFunc("GET /buildings/{file}", func(w http.ResponseWriter, r *http.Request) {
		name, format := splitFormat(r.PathValue("file"))
		result, ok := store.Get(name)
		if !ok {
			http.Error(w, "unknown building", http.StatusNotFound)
			return
		}

		if format == "" {
			w.Header().Set("Content-Type", "application/json")
			if err := summaryJSON(w, result.Summary()); err != nil {
				log.Warn("encoding summary", zap.Error(err))
			}
			return
		}

		// Render fully before writing so failures still get an error status.
		var buf bytes.Buffer
		if err := writeResult(&buf, format, result, twoSided); err != nil {
			log.Warn("rendering result", zap.String("building", name), zap.String("format", format), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Debug("writing response", zap.Error(err))
		}
	})

	mux.HandleFunc("POST /buildings/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		log.Info("reconstruction requested", zap.String("building", name), zap.String("remote", r.RemoteAddr))
		result, err := rebuild(r.Context(), name)
		switch {
		case errors.Is(err, os.ErrNotExist):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, mesh.ErrNoPlanes), errors.Is(err, mesh.ErrEmptyPointCloud):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		case err != nil:
			log.Warn("reconstruction failed", zap.String("building", name), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := summaryJSON(w, result.Summary()); err != nil {
			log.Warn("encoding summary", zap.Error(err))
		}
	})

	return mux
}

// splitFormat separates a known output format extension from a file name.
// Names without one are returned whole with an empty format.
func splitFormat(file string) (name, format string) {
	i := strings.LastIndexByte(file, '.')
	if i < 0 {
		return file, ""
	}
	ext := strings.ToLower(file[i+1:])
	if !slices.Contains(mesh.OutputFormats, ext) {
		return file, ""
	}
	return file[:i], ext
}
