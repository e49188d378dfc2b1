package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func (h *Handler) HandleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	projects, active, err := h.lib.Projects()
	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	noStore(w)
	h.writeJSON(w, models.ProjectsResponse{Projects: projects, Active: active})
}

func (h *Handler) HandleProjectSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.lib.SwitchProject(req.Name); err != nil {
		h.writeStorageError(w, err)
		return
	}
	slog.Info("switched project", "project", req.Name)
	h.writeJSON(w, models.ProjectResponse{OK: true, Name: req.Name})
}

func (h *Handler) HandleProjectCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.lib.CreateProject(req.Name, req.MoveFrom); err != nil {
		h.writeStorageError(w, err)
		return
	}
	slog.Info("created project", "project", req.Name, "move_from", req.MoveFrom)
	h.writeJSON(w, models.ProjectResponse{OK: true, Name: req.Name})
}
