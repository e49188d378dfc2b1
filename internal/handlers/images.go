package handlers

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}
	pageSize, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || pageSize <= 0 {
		pageSize = h.pageSize
	}

	out, err := h.lib.Page(models.Catalog, page, pageSize, q.Get("class"))
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	noStore(w)
	h.writeJSON(w, out)
}

func (h *Handler) HandleRawImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	images, err := h.lib.List(models.Raw, models.FilterAll)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	noStore(w)
	h.writeJSON(w, models.ImagePage{Images: images, Total: len(images)})
}

// HandleImage serves /image/{name} from the catalog and /raw_image/{name}
// from the intake collection.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/image/"), "/raw_image/")
	name, err := url.PathUnescape(rest)
	if err != nil {
		h.writeError(w, "Invalid image name.", http.StatusBadRequest)
		return
	}
	path, err := h.lib.ImagePath(collectionOf(r), name)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	if ct := contentType(name); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return ""
}
