package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/gateway"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/server/validator"
	"github.com/nulzo/model-registry/pkg/api"
)

type ModelHandler struct {
	service gateway.Service
}

func NewModelHandler(service gateway.Service) *ModelHandler {
	return &ModelHandler{
		service: service,
	}
}

// CreateModel registers a model with the inventory service.
// POST /api/models
func (h *ModelHandler) CreateModel(c *gin.Context) {
	var req api.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// returns RFC compliant error
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	in := registry.CreateInput{
		Name:            req.Name,
		Provider:        registry.Provider(req.Provider),
		ModelIdentifier: req.Model(),
		APIURL:          req.Endpoint(),
		Status:          registry.Status(req.Status),
	}

	created, err := h.service.CreateRegistration(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// DeleteModel removes a registration. Deleting an unknown id succeeds.
// DELETE /api/models/:id
func (h *ModelHandler) DeleteModel(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteRegistration(c.Request.Context(), id); err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.JSON(http.StatusOK, api.DeleteResponse{Success: true, ID: id})
}

// ListModels returns the registrations, optionally narrowed to one status.
// GET /api/models?status=all|active|inactive
func (h *ModelHandler) ListModels(c *gin.Context) {
	var q api.ModelFilter
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}
	filter, err := registry.ParseFilter(q.Status)
	if err != nil {
		_ = c.Error(api.BadRequestError(err.Error()))
		return
	}

	models, err := h.service.ListRegistrations(c.Request.Context())
	if err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.JSON(http.StatusOK, api.NewList(registry.View(models, filter)))
}

// ListProviders returns the normalized provider catalog.
// GET /api/providers
func (h *ModelHandler) ListProviders(c *gin.Context) {
	catalog, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.JSON(http.StatusOK, api.CatalogResponse[registry.Catalog]{
		Object: "catalog",
		Data:   catalog,
	})
}
