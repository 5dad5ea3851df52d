package handlers

import (
	"fmt"

	"plantmart/internal/identity"
	"plantmart/internal/middleware"
	"plantmart/internal/stores"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	carts    *stores.CartStore
	products *stores.ProductStore
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *stores.CartStore, products *stores.ProductStore, validate *validator.Validate, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		validate: validate,
		log:      log.WithField("handler", "cart"),
	}
}

// RegisterRoutes registers the cart routes. Every route needs a session.
func (h *CartHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	cartRoutes := router.Group("/cart", requireAuth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:productId", h.HandleUpdateQuantity)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
}

// HandleGetCart reloads the caller's cart from the gateway.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	items, err := h.carts.FetchCart(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve cart")
	}
	return c.JSON(items)
}

// AddItemRequest names the product to add.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// HandleAddItem adds one unit of a catalog product.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if ok, err := bindBody(c, h.validate, &req); !ok {
		return err
	}

	product, ok := h.products.Product(req.ProductID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", req.ProductID),
		})
	}

	session := middleware.SessionFrom(c)
	if err := h.carts.AddItem(c.UserContext(), session, product); err != nil {
		return respondError(c, err, "Could not add item to cart")
	}
	return c.Status(fiber.StatusCreated).JSON(h.carts.Items(session))
}

// UpdateQuantityRequest sets a line's quantity. Zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// HandleUpdateQuantity sets the quantity of one line.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	var req UpdateQuantityRequest
	if ok, err := bindBody(c, h.validate, &req); !ok {
		return err
	}

	session := middleware.SessionFrom(c)
	h.warm(c, session)
	if err := h.carts.UpdateQuantity(c.UserContext(), session, c.Params("productId"), *req.Quantity); err != nil {
		return respondError(c, err, "Could not update cart item")
	}
	return c.JSON(h.carts.Items(session))
}

// HandleRemoveItem removes one line. Removing an absent product succeeds.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	h.warm(c, session)
	if err := h.carts.RemoveItem(c.UserContext(), session, c.Params("productId")); err != nil {
		return respondError(c, err, "Could not remove cart item")
	}
	return c.JSON(h.carts.Items(session))
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.carts.ClearCart(c.UserContext(), middleware.SessionFrom(c)); err != nil {
		return respondError(c, err, "Could not clear cart")
	}
	return c.JSON(fiber.Map{
		"message": "Cart cleared",
	})
}

// warm loads the mirror for sessions that outlived a restart so the
// response reflects the whole cart.
func (h *CartHandler) warm(c *fiber.Ctx, session *identity.Session) {
	if session == nil || h.carts.Loaded(session) {
		return
	}
	if _, err := h.carts.FetchCart(c.UserContext(), session); err != nil {
		h.log.WithField("user_id", session.UserID).WithError(err).Warn("cart could not be loaded")
	}
}
