package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rutabus/fleet-service/internal/auth"
	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/service"
)

type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
	}
}

func (h *AssignmentHandler) RegisterRoutes(v1 fiber.Router) {
	v1.Post("/buses/release-all", auth.RequireRole(models.RoleAdmin), h.ReleaseAll)
	v1.Post("/buses/:id/assign", auth.RequireRole(models.RoleDriver), h.AssignBus)
	v1.Post("/buses/:id/release", h.ReleaseBus)
	v1.Get("/drivers/me/bus", auth.RequireRole(models.RoleDriver), h.MyBus)
}

func (h *AssignmentHandler) AssignBus(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	identity := auth.IdentityFromCtx(c)
	if identity == nil {
		return errorResponse(c, http.StatusUnauthorized, "Missing identity", nil)
	}

	bus, err := h.assignmentService.AssignBus(c.Context(), identity.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusNotFound):
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		case errors.Is(err, service.ErrBusTaken):
			// Distinguishable from a generic failure so the UI can say
			// "this bus was just taken by someone else".
			return errorResponse(c, http.StatusConflict, "Bus was just taken by another driver", nil)
		case errors.Is(err, service.ErrProfileNotFound):
			return errorResponse(c, http.StatusForbidden, "No driver profile for this account", nil)
		case errors.Is(err, service.ErrNotAuthorized):
			return errorResponse(c, http.StatusForbidden, "Only drivers can select buses", nil)
		default:
			return errorResponse(c, http.StatusInternalServerError, "Failed to assign bus", []string{err.Error()})
		}
	}

	return c.JSON(models.NewBusResponse(bus))
}

// ReleaseBus is open to admins and to the driver currently holding the bus.
func (h *AssignmentHandler) ReleaseBus(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	identity := auth.IdentityFromCtx(c)
	if identity == nil {
		return errorResponse(c, http.StatusUnauthorized, "Missing identity", nil)
	}

	if identity.Role != models.RoleAdmin {
		bus, err := h.assignmentService.BusForDriver(c.Context(), identity.UserID)
		if err != nil || bus.ID.Hex() != id {
			return errorResponse(c, http.StatusForbidden, "You can only release your own bus", nil)
		}
	}

	if err := h.assignmentService.ReleaseBus(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to release bus", []string{err.Error()})
	}

	return c.JSON(fiber.Map{
		"message": "Bus released",
	})
}

func (h *AssignmentHandler) ReleaseAll(c *fiber.Ctx) error {
	released, err := h.assignmentService.ReleaseAll(c.Context())
	if err != nil {
		if errors.Is(err, service.ErrPartialRelease) {
			// Not a silent success: report what happened and let the
			// caller retry, which is safe because release is idempotent.
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error":    "Release partially applied, retry to finish",
				"released": released,
			})
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to release buses", []string{err.Error()})
	}

	return c.JSON(fiber.Map{
		"released": released,
	})
}

func (h *AssignmentHandler) MyBus(c *fiber.Ctx) error {
	identity := auth.IdentityFromCtx(c)
	if identity == nil {
		return errorResponse(c, http.StatusUnauthorized, "Missing identity", nil)
	}

	bus, err := h.assignmentService.BusForDriver(c.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "No bus assigned", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to look up assignment", []string{err.Error()})
	}

	return c.JSON(models.NewBusResponse(bus))
}
