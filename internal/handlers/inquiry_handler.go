package handlers

import (
	"log"

	"hightech/internal/models"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
)

// InquiryHandler accepts custom design inquiries and printing quote requests.
type InquiryHandler struct {
	service *services.InquiryService
}

// NewInquiryHandler creates a new InquiryHandler.
func NewInquiryHandler(service *services.InquiryService) *InquiryHandler {
	return &InquiryHandler{service: service}
}

// RegisterRoutes registers the inquiry routes with the Fiber app.
func (h *InquiryHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/design-services/inquiries", h.HandleDesignInquiry)
	router.Post("/3d-printing/quotes", h.HandlePrintQuote)
}

// HandleDesignInquiry accepts a custom CAD design request.
func (h *InquiryHandler) HandleDesignInquiry(c *fiber.Ctx) error {
	var in models.DesignInquiry
	if err := c.BodyParser(&in); err != nil {
		log.Printf("Error parsing design inquiry body: %v", err)
		return invalidBody(c, err)
	}
	if err := h.service.SubmitDesignInquiry(in); err != nil {
		return validationFailed(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Thanks! We'll get back to you about your project.",
	})
}

// HandlePrintQuote accepts a 3D-printing quote request.
func (h *InquiryHandler) HandlePrintQuote(c *fiber.Ctx) error {
	var in models.PrintQuote
	if err := c.BodyParser(&in); err != nil {
		log.Printf("Error parsing print quote body: %v", err)
		return invalidBody(c, err)
	}
	if err := h.service.SubmitPrintQuote(in); err != nil {
		return validationFailed(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Thanks! We'll send your quote shortly.",
	})
}
