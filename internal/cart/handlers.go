package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// Handler exposes cart endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.CreateCart(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cart})
}

// Get handles GET /api/v1/carts/{cartId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "cartId")
	if !ok {
		return
	}
	view, err := h.service.GetCart(r.Context(), cartID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addItemRequest struct {
	ProductSlug string          `json:"productSlug"`
	Qty         int             `json:"qty"`
	Dimensions  map[string]any  `json:"dimensions"`
	Options     map[string]bool `json:"options"`
	Color       string          `json:"color"`
}

// AddItem handles POST /api/v1/carts/{cartId}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "cartId")
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be valid JSON", nil)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	view, err := h.service.AddItem(r.Context(), cartID, req.ProductSlug, req.Qty, pricing.RawConfig{
		Dimensions: req.Dimensions,
		Options:    req.Options,
		Color:      req.Color,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// RemoveItem handles DELETE /api/v1/carts/{cartId}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "cartId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	view, err := h.service.RemoveItem(r.Context(), cartID, itemID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", param+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
