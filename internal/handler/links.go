package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/guardianai/pairing-server-go/internal/errors"
	"github.com/guardianai/pairing-server-go/internal/middleware"
	"github.com/guardianai/pairing-server-go/internal/service"
	"github.com/guardianai/pairing-server-go/internal/util"
)

type LinkHandler struct {
	linkService *service.LinkService
}

func NewLinkHandler(linkService *service.LinkService) *LinkHandler {
	return &LinkHandler{linkService: linkService}
}

func (h *LinkHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{linkID}/deactivate", h.Deactivate)
	r.Delete("/{linkID}", h.Delete)
	return r
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	links, err := h.linkService.ListByParent(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(links))
	for _, link := range links {
		entries = append(entries, formatLink(link))
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": entries})
}

func (h *LinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.linkService.Deactivate)
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.linkService.Delete)
}

func (h *LinkHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, parentID, linkID string) error) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	linkID := chi.URLParam(r, "linkID")
	if !util.IsValidUUID(linkID) {
		writeError(w, apperrors.InvalidInput("linkId", "must be a UUID"))
		return
	}

	if err := op(r.Context(), principal.ID, linkID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
