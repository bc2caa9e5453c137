package handlers

import (
	"errors"
	"log"

	"hightech/internal/middleware"
	"hightech/internal/models"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const confirmationKey = "confirmation"

// CheckoutHandler drives checkout and the order confirmation page.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	sessions *session.Store
	prefix   string
}

// NewCheckoutHandler creates a new CheckoutHandler. prefix is the mount point of the
// API, used to build redirect locations.
func NewCheckoutHandler(checkout *services.CheckoutService, sessions *session.Store, prefix string) *CheckoutHandler {
	sessions.RegisterType(models.Confirmation{})
	return &CheckoutHandler{checkout: checkout, sessions: sessions, prefix: prefix}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/checkout", h.HandleGetCheckout)
	router.Post("/checkout", h.HandleSubmitCheckout)
	router.Get("/order-confirmation/:orderId", h.HandleConfirmation)
}

func (h *CheckoutHandler) emptyCart(c *fiber.Ctx) error {
	return c.Redirect(h.prefix+"/cart/empty", fiber.StatusSeeOther)
}

// HandleGetCheckout returns the checkout state and totals, or redirects when the cart is empty.
func (h *CheckoutHandler) HandleGetCheckout(c *fiber.Ctx) error {
	view, err := h.checkout.View(c.UserContext(), middleware.CurrentCartID(c))
	if errors.Is(err, services.ErrEmptyCart) {
		return h.emptyCart(c)
	}
	if err != nil {
		log.Printf("Error loading checkout: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load checkout",
			"error":   err.Error(),
		})
	}
	return c.JSON(view)
}

// HandleSubmitCheckout validates the billing form and completes the order.
func (h *CheckoutHandler) HandleSubmitCheckout(c *fiber.Ctx) error {
	var form models.CheckoutForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return invalidBody(c, err)
	}

	confirmation, err := h.checkout.Submit(c.UserContext(), middleware.CurrentCartID(c), form)
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return h.emptyCart(c)
	case errors.Is(err, services.ErrIncompleteForm):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": services.IncompleteFormMessage,
			"state":   services.StateAwaitingInput,
		})
	case errors.Is(err, services.ErrCheckoutInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Checkout is already processing",
			"state":   services.StateProcessing,
		})
	case err != nil:
		log.Printf("Error during checkout: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not complete checkout",
			"error":   err.Error(),
		})
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("Error loading session for order %s: %v", confirmation.OrderID, err)
	} else {
		sess.Set(confirmationKey, *confirmation)
		if err := sess.Save(); err != nil {
			log.Printf("Error saving session for order %s: %v", confirmation.OrderID, err)
		}
	}

	c.Location(h.prefix + "/order-confirmation/" + confirmation.OrderID)
	return c.Status(fiber.StatusSeeOther).JSON(fiber.Map{
		"state":        services.StateCompleted,
		"confirmation": confirmation,
	})
}

// HandleConfirmation shows the order confirmation. The checkout context is read once.
func (h *CheckoutHandler) HandleConfirmation(c *fiber.Ctx) error {
	var flash *models.Confirmation

	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("Error loading session: %v", err)
	} else {
		if v, ok := sess.Get(confirmationKey).(models.Confirmation); ok {
			flash = &v
		}
		sess.Delete(confirmationKey)
		if err := sess.Save(); err != nil {
			log.Printf("Error saving session: %v", err)
		}
	}

	return c.JSON(services.ConfirmationFor(c.Params("orderId"), flash))
}
