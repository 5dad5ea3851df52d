package handlers

import (
	"errors"

	"plantmart/internal/middleware"
	"plantmart/internal/models"
	"plantmart/internal/stores"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ProfileHandler handles HTTP requests for the caller's profile.
type ProfileHandler struct {
	profiles *stores.ProfileStore
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *stores.ProfileStore, validate *validator.Validate, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		validate: validate,
		log:      log.WithField("handler", "profile"),
	}
}

// RegisterRoutes registers the profile routes. Every route needs a session.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	profileRoutes := router.Group("/profile", requireAuth)
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Patch("/", h.HandleUpdateProfile)
	profileRoutes.Post("/provision", h.HandleProvisionProfile)
}

// HandleGetProfile reloads the caller's profile.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.FetchProfile(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve profile")
	}
	return c.JSON(profile)
}

// HandleUpdateProfile applies a partial update to the caller's profile.
func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if ok, err := bindBody(c, h.validate, &patch); !ok {
		return err
	}

	session := middleware.SessionFrom(c)
	if _, ok := h.profiles.Profile(session.UserID); !ok {
		if _, err := h.profiles.FetchProfile(c.UserContext(), session); err != nil {
			return respondError(c, err, "Could not retrieve profile")
		}
	}

	profile, err := h.profiles.UpdateProfile(c.UserContext(), session, patch)
	if err != nil {
		return respondError(c, err, "Could not update profile")
	}
	return c.JSON(profile)
}

// HandleProvisionProfile creates the caller's profile row if it is missing,
// e.g. after a sign-up whose profile insert failed. The email defaults to the
// session's.
func (h *ProfileHandler) HandleProvisionProfile(c *fiber.Ctx) error {
	var input models.ProfileInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}

	profile, err := h.profiles.EnsureProfile(c.UserContext(), middleware.SessionFrom(c), input)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			h.log.WithError(err).Error("error provisioning profile")
		}
		return respondError(c, err, "Could not provision profile")
	}
	return c.JSON(profile)
}
