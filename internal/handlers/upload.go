package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
)

// HandleImport accepts a multipart zip upload. /api/import_voc unpacks into
// the catalog, /api/import_images into the intake collection.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeJSONStatus(w, models.ImportResponse{Error: "No file part"}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.writeJSONStatus(w, models.ImportResponse{Error: "No selected file"}, http.StatusBadRequest)
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		h.writeJSONStatus(w, models.ImportResponse{Error: "Invalid file type, must be a .zip file"}, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImportSize+1))
	if err != nil {
		h.writeJSONStatus(w, models.ImportResponse{Error: "Failed to read file contents: " + err.Error()}, http.StatusInternalServerError)
		return
	}
	if len(data) > storage.MaxImportSize {
		h.writeJSONStatus(w, models.ImportResponse{Error: "File too large"}, http.StatusRequestEntityTooLarge)
		return
	}

	var res storage.ImportResult
	if collectionOf(r) == models.Raw {
		res, err = h.lib.ImportImages(data)
	} else {
		res, err = h.lib.ImportVOC(data)
	}
	if err != nil {
		h.writeJSONStatus(w, models.ImportResponse{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	h.writeJSON(w, models.ImportResponse{
		OK:          true,
		Message:     importMessage(res),
		Imported:    res.Images,
		FailedFiles: res.Failed,
	})
}

func importMessage(res storage.ImportResult) string {
	if res.Annotations > 0 {
		return fmt.Sprintf("Imported %d images and %d annotations.", res.Images, res.Annotations)
	}
	return fmt.Sprintf("Imported %d images.", res.Images)
}
