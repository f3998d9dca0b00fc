package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/treeline-dev/backend-treeline/internal/common"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// AdminHandler exposes product management endpoints for authenticated admins.
type AdminHandler struct {
	service  *Service
	validate *validator.Validate
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type productPayload struct {
	Slug        string         `json:"slug" validate:"required,min=2,max=80"`
	Name        string         `json:"name" validate:"required,min=2,max=120"`
	Description string         `json:"description" validate:"max=4000"`
	Published   bool           `json:"published"`
	Pricing     pricing.Config `json:"pricing"`
}

// List handles GET /api/v1/admin/products, drafts included.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, h.service.DefaultLimit(), h.service.MaxLimit())
	result, err := h.service.ListAll(r.Context(), page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// Get handles GET /api/v1/admin/products/{id}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Create handles POST /api/v1/admin/products.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// Update handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	input, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Delete handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewPayload struct {
	Pricing pricing.Config `json:"pricing"`
	Request QuoteRequest   `json:"request"`
}

// Preview handles POST /api/v1/admin/products/preview. It prices a draft rule
// set without touching storage.
func (h *AdminHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be valid JSON", nil)
		return
	}
	breakdown, err := h.service.Preview(r.Context(), req.Pricing, pricing.RawConfig{
		Dimensions: req.Request.Dimensions,
		Options:    req.Request.Options,
		Color:      req.Request.Color,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

func (h *AdminHandler) decodePayload(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be valid JSON", nil)
		return ProductInput{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		details := map[string]any{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product payload", details)
		return ProductInput{}, false
	}
	return ProductInput{
		Slug:        payload.Slug,
		Name:        payload.Name,
		Description: payload.Description,
		Published:   payload.Published,
		Pricing:     payload.Pricing,
	}, true
}

func (h *AdminHandler) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "product id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
