package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/guardianai/pairing-server-go/internal/errors"
	"github.com/guardianai/pairing-server-go/internal/middleware"
	"github.com/guardianai/pairing-server-go/internal/service"
)

type PairingHandler struct {
	pairingService *service.PairingService
}

func NewPairingHandler(pairingService *service.PairingService) *PairingHandler {
	return &PairingHandler{pairingService: pairingService}
}

func (h *PairingHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	// An empty body is fine (server-default TTL); a body that fails to parse
	// is not.
	var req struct {
		TTLSeconds int `json:"ttlSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	pt, qrPayload, err := h.pairingService.IssueToken(r.Context(), principal.ID, ttl)
	if err != nil {
		if code := apperrors.GetCode(err); code == apperrors.ErrCodeInternal || code == apperrors.ErrCodeStoreUnavailable {
			log.Error().Err(err).Msg("failed to issue pairing token")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"payload":   qrPayload,
		"expiresAt": pt.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *PairingHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	tokens, err := h.pairingService.ListActiveTokens(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(tokens))
	for _, pt := range tokens {
		entries = append(entries, formatToken(pt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": entries})
}

// Redeem runs the redemption protocol for the scanning device. It sits
// behind optional auth: a brand-new device has no identity yet and one is
// provisioned here.
func (h *PairingHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidFormat())
		return
	}

	current := middleware.GetPrincipal(r.Context())
	result, err := h.pairingService.Redeem(r.Context(), req.Payload, current)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"link": formatLink(*result.Link),
		"principal": map[string]any{
			"id":        result.Redeemer.ID,
			"role":      result.Redeemer.Role,
			"anonymous": result.Redeemer.Anonymous,
		},
	}
	if result.DeviceCredential != "" {
		resp["deviceCredential"] = result.DeviceCredential
	}
	writeJSON(w, http.StatusOK, resp)
}
