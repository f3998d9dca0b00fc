package analytics

import (
	"net/http"

	"github.com/treeline-dev/backend-treeline/internal/common"
)

type Handler struct {
	Svc *Service
}

// Overview handles GET /api/v1/admin/stats.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Svc.GetOverview(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": overview})
}
