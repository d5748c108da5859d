package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
	"github.com/sirupsen/logrus"
)

// HierarchyHandler は組織階層の参照 API のハンドラです。
type HierarchyHandler struct {
	paths  hierarchy.UseCase
	logger *logrus.Logger
}

// NewHierarchyHandler は HierarchyHandler を生成します。
func NewHierarchyHandler(paths hierarchy.UseCase, logger *logrus.Logger) *HierarchyHandler {
	return &HierarchyHandler{paths: paths, logger: logger}
}

type nodePayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListDivisions は GET /api/divisions を処理します。
func (h *HierarchyHandler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.paths.ListDivisions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payloads := make([]nodePayload, 0, len(divisions))
	for _, d := range divisions {
		payloads = append(payloads, nodePayload{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"divisions": payloads})
}

// ListServices は GET /api/divisions/{divisionID}/services を処理します。
func (h *HierarchyHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.paths.ListServices(r.Context(), chi.URLParam(r, "divisionID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payloads := make([]nodePayload, 0, len(services))
	for _, s := range services {
		payloads = append(payloads, nodePayload{ID: s.ID, Name: s.Name, ParentID: s.DivisionID, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": payloads})
}

// ListSections は GET /api/services/{serviceID}/sections を処理します。
func (h *HierarchyHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.paths.ListSections(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payloads := make([]nodePayload, 0, len(sections))
	for _, s := range sections {
		payloads = append(payloads, nodePayload{ID: s.ID, Name: s.Name, ParentID: s.ServiceID, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": payloads})
}

// ListEquipes は GET /api/sections/{sectionID}/equipes を処理します。
func (h *HierarchyHandler) ListEquipes(w http.ResponseWriter, r *http.Request) {
	equipes, err := h.paths.ListEquipes(r.Context(), chi.URLParam(r, "sectionID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payloads := make([]nodePayload, 0, len(equipes))
	for _, e := range equipes {
		payloads = append(payloads, nodePayload{ID: e.ID, Name: e.Name, ParentID: e.SectionID, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipes": payloads})
}
