package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"hightech/internal/middleware"
	"hightech/internal/models"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler exposes the shopper's cart.
type CartHandler struct {
	carts      *services.CartService
	dxfFiles   *services.CatalogStore[models.DXFFile]
	printItems *services.CatalogStore[models.PrintItem]
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService, dxfFiles *services.CatalogStore[models.DXFFile], printItems *services.CatalogStore[models.PrintItem]) *CartHandler {
	return &CartHandler{carts: carts, dxfFiles: dxfFiles, printItems: printItems}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cart := router.Group("/cart")
	cart.Get("/", h.HandleGetCart)
	cart.Delete("/", h.HandleClearCart)
	cart.Get("/empty", h.HandleEmptyNotice)
	cart.Post("/items", h.HandleAddItem)
	cart.Put("/items/:id", h.HandleUpdateQuantity)
	cart.Delete("/items/:id", h.HandleRemoveItem)
}

// AddItemRequest references a catalog product by id and kind.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"kind"`
}

// UpdateQuantityRequest carries the raw quantity input, either a JSON number or a string.
type UpdateQuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// HandleGetCart returns the cart with count and subtotal.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return c.JSON(h.carts.Summary(c.UserContext(), middleware.CurrentCartID(c)))
}

// HandleEmptyNotice is where checkout sends shoppers with an empty cart.
func (h *CartHandler) HandleEmptyNotice(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": services.EmptyCartNotice})
}

func (h *CartHandler) lookup(req AddItemRequest) (models.CartItem, bool) {
	switch req.Kind {
	case models.KindPrint, "print":
		p, ok := h.printItems.Get(req.ProductID)
		return models.CartItem{ID: p.ID, Name: p.Name, Price: p.Price, Type: models.KindPrint}, ok
	default:
		f, ok := h.dxfFiles.Get(req.ProductID)
		return models.CartItem{ID: f.ID, Name: f.Name, Price: f.Price, Type: models.KindDXF}, ok
	}
}

// HandleAddItem adds one unit of a catalog product. Name and price come from the catalog.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add to cart request body: %v", err)
		return invalidBody(c, err)
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "product_id is required",
		})
	}

	item, ok := h.lookup(req)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	}

	cart, release := h.carts.Open(c.UserContext(), middleware.CurrentCartID(c))
	defer release()
	if err := cart.AddToCart(item); err != nil {
		log.Printf("Error adding %s to cart: %v", item.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cart.Summary())
}

// HandleUpdateQuantity sets the quantity of a line; zero or less removes it.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	var req UpdateQuantityRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return invalidBody(c, err)
	}

	raw := strings.TrimSpace(string(req.Quantity))
	var s string
	if err := json.Unmarshal(req.Quantity, &s); err == nil {
		raw = s
	}

	cart, release := h.carts.Open(c.UserContext(), middleware.CurrentCartID(c))
	defer release()
	if err := cart.UpdateQuantityInput(c.Params("id"), raw); err != nil {
		if errors.Is(err, services.ErrInvalidQuantity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Quantity must be a whole number",
				"error":   err.Error(),
			})
		}
		log.Printf("Error updating cart quantity: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cart.Summary())
}

// HandleRemoveItem drops a line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, release := h.carts.Open(c.UserContext(), middleware.CurrentCartID(c))
	defer release()
	if err := cart.RemoveFromCart(c.Params("id")); err != nil {
		log.Printf("Error removing cart item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cart.Summary())
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart, release := h.carts.Open(c.UserContext(), middleware.CurrentCartID(c))
	defer release()
	if err := cart.ClearCart(); err != nil {
		log.Printf("Error clearing cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cart.Summary())
}
