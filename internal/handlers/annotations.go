package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/storage"
)

// HandleAnnotation reads (GET) or overwrites (POST) the boxes of one image.
// A corrupt record is still a 200 with the error reported in the body.
func (h *Handler) HandleAnnotation(w http.ResponseWriter, r *http.Request) {
	coll := collectionOf(r)
	switch r.Method {
	case http.MethodGet:
		image := r.URL.Query().Get("image")
		if err := storage.ValidateName(image); err != nil {
			h.writeError(w, "Invalid image name.", http.StatusBadRequest)
			return
		}
		ann, err := h.lib.ReadAnnotation(coll, image)
		resp := models.AnnotationResponse{Boxes: ann.Boxes, W: ann.W, H: ann.H}
		if err != nil {
			slog.Warn("unreadable annotation", "image", image, "err", err)
			resp.Error = err.Error()
		}
		if resp.Boxes == nil {
			resp.Boxes = []models.Box{}
		}
		noStore(w)
		h.writeJSON(w, resp)
	case http.MethodPost:
		h.saveAnnotation(w, r, coll)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAnnotate is the catalog write endpoint.
func (h *Handler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.saveAnnotation(w, r, models.Catalog)
}

func (h *Handler) saveAnnotation(w http.ResponseWriter, r *http.Request, coll models.Collection) {
	var req models.AnnotateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.lib.WriteAnnotation(coll, req.Image, req.Boxes); err != nil {
		h.writeStorageError(w, err)
		return
	}
	slog.Info("annotation saved", "collection", string(coll), "image", req.Image, "boxes", len(req.Boxes))
	h.writeJSON(w, models.OKResponse{OK: true})
}

func (h *Handler) HandleAnnotationsBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.BulkAnnotationsRequest
	if !h.decode(w, r, &req) {
		return
	}
	var out models.BulkAnnotationsResponse
	out.Items = make(map[string]struct {
		Boxes []models.Box `json:"boxes"`
	})
	for name, boxes := range h.lib.BulkBoxes(models.Catalog, req.Images) {
		item := out.Items[name]
		item.Boxes = boxes
		out.Items[name] = item
	}
	noStore(w)
	h.writeJSON(w, out)
}

func (h *Handler) HandleClasses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		classes, err := h.lib.Classes()
		if err != nil {
			h.writeStorageError(w, err)
			return
		}
		noStore(w)
		h.writeJSON(w, models.ClassesPayload{Classes: classes})
	case http.MethodPost:
		var req models.ClassesPayload
		if !h.decode(w, r, &req) {
			return
		}
		if err := h.lib.SaveClasses(req.Classes); err != nil {
			h.writeStorageError(w, err)
			return
		}
		h.writeJSON(w, models.OKResponse{OK: true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.FilesRequest
	if !h.decode(w, r, &req) {
		return
	}
	res := h.lib.Delete(collectionOf(r), req.Files)
	h.writeJSON(w, models.DeleteResponse{Deleted: res.Done, Errors: res.Failed})
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.FilesRequest
	if !h.decode(w, r, &req) {
		return
	}
	res := h.lib.Accept(req.Files, req.Label)
	h.writeJSON(w, models.AcceptResponse{Accepted: res.Done, Errors: res.Failed})
}
