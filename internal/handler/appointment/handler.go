package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campuswell/counseling-api/internal/handler"
	"github.com/campuswell/counseling-api/internal/middleware"
	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/service/appointment"
	apperrors "github.com/campuswell/counseling-api/pkg/errors"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/available-slots", h.GetAvailableSlots)
		appointments.GET("/student/:studentId", h.ListStudentAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateAppointmentStatus)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortValidation(c, "invalid request body", err)
		return
	}

	// Header takes precedence over the body field so proxies can
	// inject retry keys without rewriting payloads.
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = &key
	}

	result, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.AbortValidation(c, "invalid appointment ID", err)
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListStudentAppointments(c *gin.Context) {
	// A malformed student ID yields an empty list; the service owns
	// that decision.
	appointments, err := h.service.ListStudentAppointments(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.AbortValidation(c, "invalid appointment ID", err)
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortValidation(c, "invalid request body", err)
		return
	}

	apt, err := h.service.UpdateAppointmentStatus(c.Request.Context(), id, model.AppointmentStatus(req.Status))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	counselorParam := c.Query("counselor_id")
	if counselorParam == "" {
		counselorParam = c.Query("counselorId")
	}
	counselorID, err := uuid.Parse(counselorParam)
	if err != nil {
		middleware.AbortValidation(c, "invalid counselor ID", err)
		return
	}

	date := c.Query("date")
	if date == "" {
		middleware.AbortWithError(c, apperrors.NewValidation("date query parameter is required", nil))
		return
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), counselorID, date)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}
