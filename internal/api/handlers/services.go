package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/herald-dns/herald/internal/api/models"
	"github.com/herald-dns/herald/internal/dnssd"
)

// ListServices godoc
// @Summary List advertised services
// @Description Returns every DNS-SD service herald currently advertises
// @Tags services
// @Produce json
// @Success 200 {object} models.ServiceListResponse
// @Security ApiKeyAuth
// @Router /services [get]
func (h *Handler) ListServices(c *gin.Context) {
	resp := models.ServiceListResponse{Services: []models.ServiceResponse{}}
	for _, svc := range h.manager.List() {
		resp.Services = append(resp.Services, serviceResponse(svc))
	}
	c.JSON(http.StatusOK, resp)
}

// GetService godoc
// @Summary Get one advertised service
// @Tags services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} models.ServiceResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /services/{name} [get]
func (h *Handler) GetService(c *gin.Context) {
	svc, ok := h.manager.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "service not found"})
		return
	}
	c.JSON(http.StatusOK, serviceResponse(svc))
}

// CreateService godoc
// @Summary Register a service
// @Description Registers a DNS-SD service, probes for uniqueness and starts advertising it
// @Tags services
// @Accept json
// @Produce json
// @Param service body models.ServiceRequest true "Service definition"
// @Success 201 {object} models.ServiceResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /services [post]
func (h *Handler) CreateService(c *gin.Context) {
	var req models.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	svc := &dnssd.Service{
		Name:         req.Name,
		InstanceName: req.InstanceName,
		Type:         req.Type,
		Port:         req.Port,
		Priority:     req.Priority,
		Weight:       req.Weight,
		TXT:          req.TXT,
	}

	if err := h.manager.Add(svc); err != nil {
		status := http.StatusBadRequest
		if _, exists := h.manager.Get(svc.Name); exists {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.manager.Register(svc, h.scope, h.host.Current()); err != nil {
		h.manager.Remove(svc.Name, h.scope)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	if h.db != nil {
		if err := h.db.PutService(c.Request.Context(), svc); err != nil {
			h.logger.Error("failed to persist service", "service", svc.Name, "err", err)
		}
	}

	c.JSON(http.StatusCreated, serviceResponse(svc))
}

// DeleteService godoc
// @Summary Unregister a service
// @Description Withdraws the service's records from the link and forgets it
// @Tags services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /services/{name} [delete]
func (h *Handler) DeleteService(c *gin.Context) {
	name := c.Param("name")
	if !h.manager.Remove(name, h.scope) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "service not found"})
		return
	}

	if h.db != nil {
		if _, err := h.db.DeleteService(c.Request.Context(), name); err != nil {
			h.logger.Error("failed to delete persisted service", "service", name, "err", err)
		}
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "deleted"})
}

func serviceResponse(svc *dnssd.Service) models.ServiceResponse {
	return models.ServiceResponse{
		Name:         svc.Name,
		InstanceName: svc.InstanceName,
		Type:         svc.Type,
		Port:         svc.Port,
		Priority:     svc.Priority,
		Weight:       svc.Weight,
		TXT:          svc.TXT,
		Instance:     svc.InstancePath(),
	}
}
