package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/internal/dto"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/pkg/response"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	reservationService service.ReservationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reservationService service.ReservationService) *AdminHandler {
	return &AdminHandler{reservationService: reservationService}
}

// AdjustCapacity handles POST /api/v1/admin/services/:id/capacity
func (h *AdminHandler) AdjustCapacity(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.adjust_capacity")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	serviceID := c.Param("id")

	var req dto.AdjustCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("service_id", serviceID),
		attribute.String("class", req.Class),
		attribute.Int("delta", req.Delta),
	)

	result, err := h.reservationService.AdjustCapacity(ctx, serviceID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
