package handlers

import (
	"plantmart/internal/middleware"
	"plantmart/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	log     logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log.WithField("handler", "orders"),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	orderRoutes := router.Group("/orders", requireAuth)
	orderRoutes.Post("/confirm", h.HandleConfirmOrder)
}

// HandleConfirmOrder turns the caller's cart into an order.
func (h *OrderHandler) HandleConfirmOrder(c *fiber.Ctx) error {
	order, err := h.service.ConfirmOrder(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		h.log.WithError(err).Warn("error confirming order")
		return respondError(c, err, "Could not confirm order")
	}

	// Return the confirmed order with a 201 Created status
	return c.Status(fiber.StatusCreated).JSON(order)
}
