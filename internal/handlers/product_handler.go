package handlers

import (
	"fmt"

	"plantmart/internal/middleware"
	"plantmart/internal/models"
	"plantmart/internal/stores"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	store    *stores.ProductStore
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store *stores.ProductStore, validate *validator.Validate, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{
		store:    store,
		validate: validate,
		log:      log.WithField("handler", "products"),
	}
}

// RegisterRoutes registers the product routes. Reads are public, writes go
// through requireAuth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", requireAuth, h.HandleCreateProduct)
	productRoutes.Put("/:id", requireAuth, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", requireAuth, h.HandleDeleteProduct)
}

// HandleGetProducts returns the catalog, newest first. ?refresh=true re-reads
// the gateway.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	if h.store.Loading() || c.QueryBool("refresh") {
		if err := h.store.FetchProducts(c.UserContext()); err != nil {
			h.log.WithError(err).Error("error fetching products")
			return respondError(c, err, "Could not retrieve products")
		}
	}
	return c.JSON(h.store.Products())
}

// HandleGetProductByID returns a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id := c.Params("id")
	product, ok := h.store.Product(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", id),
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct lists a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input models.NewProduct
	if ok, err := bindBody(c, h.validate, &input); !ok {
		return err
	}

	product, err := h.store.AddProduct(c.UserContext(), middleware.SessionFrom(c), input)
	if err != nil {
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update and returns the product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	var patch models.ProductPatch
	if ok, err := bindBody(c, h.validate, &patch); !ok {
		return err
	}

	if err := h.store.UpdateProduct(c.UserContext(), middleware.SessionFrom(c), id, patch); err != nil {
		return respondError(c, err, "Could not update product")
	}

	product, ok := h.store.Product(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", id),
		})
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.RemoveProduct(c.UserContext(), middleware.SessionFrom(c), id); err != nil {
		return respondError(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product with ID %s deleted successfully", id),
	})
}
