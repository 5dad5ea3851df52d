package handlers

import (
	"errors"
	"fmt"

	"plantmart/internal/classifier"
	"plantmart/internal/identity"
	"plantmart/internal/repositories"
	"plantmart/internal/services"
	"plantmart/internal/stores"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// validationFailed renders validator errors as a field -> message map.
func validationFailed(c *fiber.Ctx, validationErrors validator.ValidationErrors) error {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// respondError maps a store or service error onto a status code. message is
// the fallback used for unexpected failures.
func respondError(c *fiber.Ctx, err error, message string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return validationFailed(c, validationErrors)
	}

	var partial *stores.PartialSignUpError
	if errors.As(err, &partial) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message":     "Account created but profile could not be saved",
			"error":       partial.Error(),
			"identityId":  partial.IdentityID,
			"compensated": partial.Compensated,
		})
	}

	var cerr *classifier.Error
	if errors.As(err, &cerr) {
		status := fiber.StatusBadGateway
		if cerr.Invalid {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{
			"message": cerr.Message,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, stores.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidCredentials):
		status = fiber.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailTaken):
		status = fiber.StatusConflict
	case errors.Is(err, repositories.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrEmptyCart):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// bindBody parses and validates the request body into out. When it returns
// false the error response has already been written.
func bindBody(c *fiber.Ctx, validate *validator.Validate, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, invalidBody(c, err)
	}
	if err := validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return false, validationFailed(c, validationErrors)
		}
		return false, invalidBody(c, err)
	}
	return true, nil
}
