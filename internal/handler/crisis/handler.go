package crisis

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuswell/counseling-api/internal/handler"
	"github.com/campuswell/counseling-api/internal/middleware"
	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/service/crisis"
)

type Handler struct {
	service *crisis.Service
}

func NewHandler(service *crisis.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/crisis")
	{
		alerts.POST("", h.CreateAlert)
		alerts.GET("", h.ListAlerts)
		alerts.GET("/:id", h.GetAlert)
		alerts.PATCH("/:id/status", h.UpdateAlertStatus)
	}
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var req model.CreateCrisisAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortValidation(c, "invalid request body", err)
		return
	}

	alert, err := h.service.ClassifyAndCreateAlert(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(alert))
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.service.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(alert))
}

func (h *Handler) ListAlerts(c *gin.Context) {
	filters := &model.AlertFilters{
		Status:   model.AlertStatus(c.Query("status")),
		Severity: model.CrisisSeverity(c.Query("severity")),
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(alerts))
}

func (h *Handler) UpdateAlertStatus(c *gin.Context) {
	var req model.UpdateAlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortValidation(c, "invalid request body", err)
		return
	}

	var responderRef *uuid.UUID
	if req.ResponderRef != nil {
		ref, err := uuid.Parse(*req.ResponderRef)
		if err != nil {
			middleware.AbortValidation(c, "invalid responder reference", err)
			return
		}
		responderRef = &ref
	}

	alert, err := h.service.UpdateAlertStatus(c.Request.Context(), c.Param("id"), model.AlertStatus(req.Status), responderRef)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(alert))
}
