package handler

import (
	"net/http"
	"time"

	"github.com/guardianai/pairing-server-go/internal/httputil"
	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/util"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// formatToken renders a listing entry. The token value is masked; the full
// value only ever leaves the server inside the payload returned at issuance.
func formatToken(pt model.PairingToken) map[string]any {
	return map[string]any{
		"token":     util.MaskToken(pt.Token),
		"issuedAt":  pt.IssuedAt.Format(time.RFC3339),
		"expiresAt": pt.ExpiresAt.Format(time.RFC3339),
	}
}

func formatLink(link model.DeviceLink) map[string]any {
	return map[string]any{
		"linkId":   link.LinkID,
		"parentId": link.ParentID,
		"childId":  link.ChildID,
		"linkedAt": link.LinkedAt.Format(time.RFC3339),
		"active":   link.Active,
	}
}
