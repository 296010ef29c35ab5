package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/internal/dto"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/pkg/middleware"
	"github.com/railops/train-reservation/pkg/response"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// TicketHandler handles ticket HTTP requests
type TicketHandler struct {
	reservationService service.ReservationService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(reservationService service.ReservationService) *TicketHandler {
	return &TicketHandler{reservationService: reservationService}
}

// Purchase handles POST /api/v1/tickets
func (h *TicketHandler) Purchase(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.purchase")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	accountID := c.GetString(middleware.ContextKeyAccountID)
	if accountID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "missing account identity")
		return
	}

	var req dto.PurchaseTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("service_id", req.ServiceID),
		attribute.String("class", req.Class),
		attribute.Int("passenger_count", len(req.PassengerIDs)),
	)

	result, err := h.reservationService.PurchaseBatch(ctx, accountID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// Cancel handles POST /api/v1/tickets/:id/cancel
func (h *TicketHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	accountID := c.GetString(middleware.ContextKeyAccountID)
	if accountID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "missing account identity")
		return
	}

	ticketID := c.Param("id")
	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("ticket_id", ticketID),
	)

	result, err := h.reservationService.Cancel(ctx, accountID, ticketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// Get handles GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	accountID := c.GetString(middleware.ContextKeyAccountID)
	if accountID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "missing account identity")
		return
	}

	result, err := h.reservationService.GetTicket(ctx, accountID, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	accountID := c.GetString(middleware.ContextKeyAccountID)
	if accountID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "missing account identity")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.reservationService.ListTickets(ctx, accountID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// Availability handles GET /api/v1/services/:id/availability
func (h *TicketHandler) Availability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	serviceID := c.Param("id")
	span.SetAttributes(attribute.String("service_id", serviceID))

	result, err := h.reservationService.Availability(ctx, serviceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// handleError maps domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	case domain.IsForbiddenError(err):
		response.Forbidden(c, err.Error())
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsConflictError(err):
		response.Conflict(c, conflictCode(err), err.Error())
	default:
		response.InternalError(c, err)
	}
}

func conflictCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		return "NO_SEATS_AVAILABLE"
	case errors.Is(err, domain.ErrVehicleNotAssigned):
		return "VEHICLE_NOT_ASSIGNED"
	case errors.Is(err, domain.ErrNoStopsDefined),
		errors.Is(err, domain.ErrStopNotFound),
		errors.Is(err, domain.ErrInvalidDirection):
		return "INVALID_TRIP"
	default:
		return "CONFLICT"
	}
}
