// Package handlers implements the annotation service over a storage.Library.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/export"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
)

// Handler serves the image library of the active project.
type Handler struct {
	lib      *storage.Library
	pageSize int
}

func New(lib *storage.Library, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Handler{lib: lib, pageSize: pageSize}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/images", h.HandleImages)
	mux.HandleFunc("/api/raw_images", h.HandleRawImages)
	mux.HandleFunc("/image/", h.HandleImage)
	mux.HandleFunc("/raw_image/", h.HandleImage)
	mux.HandleFunc("/api/annotation", h.HandleAnnotation)
	mux.HandleFunc("/api/raw/annotation", h.HandleAnnotation)
	mux.HandleFunc("/api/annotate", h.HandleAnnotate)
	mux.HandleFunc("/api/annotations_bulk", h.HandleAnnotationsBulk)
	mux.HandleFunc("/api/classes", h.HandleClasses)
	mux.HandleFunc("/api/delete", h.HandleDelete)
	mux.HandleFunc("/api/raw/delete", h.HandleDelete)
	mux.HandleFunc("/api/raw/accept", h.HandleAccept)
	mux.HandleFunc("/api/import_voc", h.HandleImport)
	mux.HandleFunc("/api/import_images", h.HandleImport)
	mux.HandleFunc("/api/export_options", h.HandleExportOptions)
	mux.HandleFunc("/api/export_voc", h.HandleExport)
	mux.HandleFunc("/exports/", h.HandleExportDownload)
	mux.HandleFunc("/api/projects", h.HandleProjects)
	mux.HandleFunc("/api/project/switch", h.HandleProjectSwitch)
	mux.HandleFunc("/api/project/create", h.HandleProjectCreate)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

func (h *Handler) exporter() *export.Exporter {
	return export.New(h.lib, h.lib.ExportsDir())
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// writeStorageError maps library errors onto status codes.
func (h *Handler) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrInvalidProject):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, os.ErrNotExist):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrExists):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrNoProjects):
		h.writeError(w, err.Error(), http.StatusNotImplemented)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, max-age=0")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func collectionOf(r *http.Request) models.Collection {
	switch r.URL.Path {
	case "/api/raw/annotation", "/api/raw/delete", "/api/import_images":
		return models.Raw
	}
	if strings.HasPrefix(r.URL.Path, "/raw_image/") {
		return models.Raw
	}
	return models.Catalog
}
