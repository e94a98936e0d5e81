package handlers

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rutabus/fleet-service/internal/models"
)

func errorResponse(c *fiber.Ctx, statusCode int, message string, details []string) error {
	response := models.ErrorResponse{
		Error:   message,
		Details: details,
		Code:    statusCode,
	}
	return c.Status(statusCode).JSON(response)
}

func isValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func validationDetails(err error) []string {
	var details []string
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErr {
			details = append(details, formatValidationError(e))
		}
	} else {
		details = append(details, err.Error())
	}
	return details
}

func formatValidationError(err validator.FieldError) string {
	field := strings.ToLower(err.Field())
	tag := err.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, err.Param())
	case "unit_number":
		return "unit_number must be 1-20 letters, digits or dashes"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
