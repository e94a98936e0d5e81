package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rutabus/fleet-service/internal/auth"
	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/service"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) RegisterRoutes(v1 fiber.Router) {
	profiles := v1.Group("/profiles")
	{
		profiles.Get("/:id", h.GetProfile)
		profiles.Put("/:id", auth.RequireRole(models.RoleAdmin), h.EnsureProfile)
		profiles.Put("/:id/role", auth.RequireRole(models.RoleAdmin), h.SetRole)
	}
}

// EnsureProfile registers or updates a profile for an auth identity.
func (h *ProfileHandler) EnsureProfile(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid JSON format", nil)
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	}

	if err := h.profileService.EnsureProfile(c.Context(), id, req.Role); err != nil {
		return errorResponse(c, http.StatusInternalServerError, "Failed to save profile", []string{err.Error()})
	}

	return c.JSON(fiber.Map{
		"id":   id,
		"role": req.Role,
	})
}

// GetProfile serves admins and the profile's own user.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	id := c.Params("id")

	identity := auth.IdentityFromCtx(c)
	if identity == nil {
		return errorResponse(c, http.StatusUnauthorized, "Missing identity", nil)
	}
	if identity.Role != models.RoleAdmin && identity.UserID != id {
		return errorResponse(c, http.StatusForbidden, "You can only view your own profile", nil)
	}

	profile, err := h.profileService.GetProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return errorResponse(c, http.StatusNotFound, "Profile not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to get profile", []string{err.Error()})
	}

	return c.JSON(models.NewProfileResponse(profile))
}

func (h *ProfileHandler) SetRole(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid JSON format", nil)
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Validation failed", validationDetails(err))
	}

	if err := h.profileService.SetRole(c.Context(), id, req.Role); err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return errorResponse(c, http.StatusNotFound, "Profile not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "Failed to set role", []string{err.Error()})
	}

	return c.JSON(fiber.Map{
		"id":   id,
		"role": req.Role,
	})
}
