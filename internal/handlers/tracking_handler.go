package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rutabus/fleet-service/internal/auth"
	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/service"
)

type TrackingHandler struct {
	trackingService   service.TrackingService
	assignmentService service.AssignmentService
}

func NewTrackingHandler(trackingService service.TrackingService, assignmentService service.AssignmentService) *TrackingHandler {
	return &TrackingHandler{
		trackingService:   trackingService,
		assignmentService: assignmentService,
	}
}

func (h *TrackingHandler) RegisterRoutes(v1 fiber.Router) {
	v1.Post("/buses/:id/locations", auth.RequireRole(models.RoleDriver), h.ReportLocation)
	v1.Get("/buses/:id/locations", h.GetPath)
	v1.Get("/buses/:id/locations/last", h.GetLastKnown)
	v1.Get("/map/snapshot", h.GetSnapshot)
}

func (h *TrackingHandler) ReportLocation(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	identity := auth.IdentityFromCtx(c)
	if identity == nil {
		return errorResponse(c, http.StatusUnauthorized, "Missing identity", nil)
	}

	// Only the driver holding the bus may report for it.
	bus, err := h.assignmentService.BusForDriver(c.Context(), identity.UserID)
	if err != nil || bus.ID.Hex() != id {
		return errorResponse(c, http.StatusForbidden, "You can only report positions for your own bus", nil)
	}

	var req models.ReportLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid JSON format", nil)
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	}

	location, err := h.trackingService.ReportLocation(c.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusNotFound):
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		case errors.Is(err, service.ErrValidationFailed):
			return errorResponse(c, http.StatusBadRequest, "Validation failed", []string{err.Error()})
		default:
			return errorResponse(c, http.StatusInternalServerError, "Failed to record location", []string{err.Error()})
		}
	}

	return c.Status(http.StatusCreated).JSON(models.NewLocationResponse(location))
}

func (h *TrackingHandler) GetPath(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	// Default window is "today", matching the map's day-scoped polyline.
	since := startOfDay(time.Now())
	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "Invalid since parameter, expected RFC3339", nil)
		}
		since = parsed
	}

	locations, err := h.trackingService.Path(c.Context(), id, since)
	if err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to load path", []string{err.Error()})
	}

	response := make([]*models.LocationResponse, len(locations))
	for i := range locations {
		response[i] = models.NewLocationResponse(&locations[i])
	}

	return c.JSON(fiber.Map{
		"bus_id":    id,
		"since":     since.Format(time.RFC3339),
		"locations": response,
	})
}

func (h *TrackingHandler) GetLastKnown(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	status, err := h.trackingService.LastKnown(c.Context(), id, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to load bus status", []string{err.Error()})
	}

	return c.JSON(status)
}

func (h *TrackingHandler) GetSnapshot(c *fiber.Ctx) error {
	snapshot, err := h.trackingService.Snapshot(c.Context(), time.Now())
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "Failed to build snapshot", []string{err.Error()})
	}

	return c.JSON(snapshot)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
