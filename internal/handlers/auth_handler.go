package handlers

import (
	"errors"

	"plantmart/internal/middleware"
	"plantmart/internal/models"
	"plantmart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, validate *validator.Validate, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		log:         log.WithField("handler", "auth"),
	}
}

// RegisterRoutes registers the authentication routes. requireAuth guards logout.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)
	authRoutes.Post("/logout", requireAuth, h.HandleLogout)
}

// RegisterRequest is a sign-up: the profile attributes plus a password.
type RegisterRequest struct {
	models.ProfileInput
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// HandleRegister signs a user up and provisions their profile.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.WithError(err).Warn("error parsing register request body")
		return invalidBody(c, err)
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return validationFailed(c, validationErrors)
		}
		return invalidBody(c, err)
	}

	session, profile, err := h.authService.Register(c.UserContext(), req.ProfileInput, req.Password)
	if err != nil {
		h.log.WithField("email", req.Email).WithError(err).Error("error registering user")
		return respondError(c, err, "Could not register user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"session": session,
		"profile": profile,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates a user and returns their session and profile.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := bindBody(c, h.validate, &req); !ok {
		return err
	}

	session, profile, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		h.log.WithField("email", req.Email).WithError(err).Info("login failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"session": session,
		"profile": profile,
	})
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// HandleRefresh exchanges a refresh token for a new session.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if ok, err := bindBody(c, h.validate, &req); !ok {
		return err
	}

	session, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Could not refresh session",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"session": session,
	})
}

// HandleLogout ends the caller's session. A refresh token in the body is
// revoked as well.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if session != nil && len(c.Body()) > 0 {
		var req RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			session.RefreshToken = req.RefreshToken
		}
	}

	if err := h.authService.Logout(c.UserContext(), session); err != nil {
		h.log.WithError(err).Error("error signing out")
		return respondError(c, err, "Could not sign out")
	}
	return c.JSON(fiber.Map{
		"message": "Signed out",
	})
}
