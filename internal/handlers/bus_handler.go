package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rutabus/fleet-service/internal/auth"
	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/service"
)

type BusHandler struct {
	busService service.BusService
}

func NewBusHandler(busService service.BusService) *BusHandler {
	return &BusHandler{
		busService: busService,
	}
}

func (h *BusHandler) RegisterRoutes(v1 fiber.Router) {
	buses := v1.Group("/buses")
	{
		buses.Post("/", auth.RequireRole(models.RoleAdmin), h.CreateBus)
		buses.Get("/", h.ListBuses)
		buses.Get("/available", h.ListAvailableBuses)
		buses.Get("/:id", h.GetBus)
		buses.Put("/:id", auth.RequireRole(models.RoleAdmin), h.UpdateBus)
		buses.Delete("/:id", auth.RequireRole(models.RoleAdmin), h.DeleteBus)
	}
}

func (h *BusHandler) CreateBus(c *fiber.Ctx) error {
	var req models.CreateBusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid JSON format", nil)
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	}

	busID, err := h.busService.CreateBus(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidationFailed):
			return errorResponse(c, http.StatusBadRequest, "Validation failed", []string{err.Error()})
		case errors.Is(err, service.ErrUnitNumberTaken):
			return errorResponse(c, http.StatusConflict, "Unit number already in use", nil)
		default:
			return errorResponse(c, http.StatusInternalServerError, "Failed to create bus", []string{err.Error()})
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id": busID,
	})
}

func (h *BusHandler) GetBus(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	bus, err := h.busService.GetBusByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to get bus", []string{err.Error()})
	}

	return c.JSON(models.NewBusResponse(bus))
}

func (h *BusHandler) ListBuses(c *fiber.Ctx) error {
	page := 1
	pageSize := 20

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if pageSizeStr := c.Query("pageSize"); pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 {
			if ps > 100 {
				pageSize = 100
			} else {
				pageSize = ps
			}
		}
	}

	response, err := h.busService.ListBuses(c.Context(), page, pageSize)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "Failed to list buses", []string{err.Error()})
	}

	buses := make([]models.BusResponse, len(response.Data))
	for i := range response.Data {
		buses[i] = *models.NewBusResponse(&response.Data[i])
	}

	return c.JSON(models.ListBusesResponse{
		Data:       buses,
		Page:       response.Page,
		PageSize:   response.PageSize,
		TotalCount: response.TotalCount,
		TotalPages: response.TotalPages,
	})
}

func (h *BusHandler) ListAvailableBuses(c *fiber.Ctx) error {
	buses, err := h.busService.ListAvailableBuses(c.Context())
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "Failed to list available buses", []string{err.Error()})
	}

	response := make([]*models.BusResponse, len(buses))
	for i := range buses {
		response[i] = models.NewBusResponse(&buses[i])
	}

	return c.JSON(fiber.Map{
		"buses": response,
	})
}

func (h *BusHandler) UpdateBus(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	var req models.UpdateBusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid JSON format", nil)
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	}

	if err := h.busService.UpdateBus(c.Context(), id, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrBusNotFound):
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		case errors.Is(err, service.ErrUnitNumberTaken):
			return errorResponse(c, http.StatusConflict, "Unit number already in use", nil)
		default:
			return errorResponse(c, http.StatusInternalServerError, "Failed to update bus", []string{err.Error()})
		}
	}

	bus, err := h.busService.GetBusByID(c.Context(), id)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "Failed to fetch updated bus", []string{err.Error()})
	}

	return c.JSON(models.NewBusResponse(bus))
}

func (h *BusHandler) DeleteBus(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidObjectID(id) {
		return errorResponse(c, http.StatusBadRequest, "Invalid bus ID format", nil)
	}

	if err := h.busService.DeleteBus(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrBusNotFound) {
			return errorResponse(c, http.StatusNotFound, "Bus not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to delete bus", []string{err.Error()})
	}

	return c.Status(http.StatusNoContent).Send(nil)
}
