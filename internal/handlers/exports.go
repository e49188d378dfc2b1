package handlers

import (
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// HandleExportOptions lists the classes in the class set together with any
// label found in the catalog's annotations.
func (h *Handler) HandleExportOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	classes, err := h.lib.Classes()
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	inUse, err := h.lib.LabelsInUse()
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	seen := make(map[string]bool, len(classes))
	out := append([]string{}, classes...)
	for _, c := range classes {
		seen[c] = true
	}
	var extra []string
	for _, l := range inUse {
		if !seen[l] {
			extra = append(extra, l)
		}
	}
	sort.Strings(extra)
	noStore(w)
	h.writeJSON(w, models.ClassesPayload{Classes: append(out, extra...)})
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ExportRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.exporter().Export(r.Context(), req)
	if err != nil {
		h.writeJSONStatus(w, models.ExportResponse{Error: err.Error()}, http.StatusBadRequest)
		return
	}
	h.writeJSON(w, models.ExportResponse{
		OK:      true,
		Count:   res.Count,
		ZipName: res.Name,
		ZipURL:  "/exports/" + res.Name,
	})
}

func (h *Handler) HandleExportDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/exports/")
	if name == "" || strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, ".zip") {
		h.writeError(w, "Invalid export name", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, filepath.Join(h.lib.ExportsDir(), name))
}
