package handlers

import (
	"errors"
	"io"
	"log"
	"net/url"
	"strings"

	"hightech/internal/repositories"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

// UploadHandler serves stored product images.
type UploadHandler struct {
	storage repositories.ObjectStorage
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(storage repositories.ObjectStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// RegisterRoutes mounts GET /uploads/*.
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/uploads/*", h.HandleGetObject)
}

// HandleGetObject streams an object with its sniffed content type.
func (h *UploadHandler) HandleGetObject(c *fiber.Ctx) error {
	objectPath, err := url.PathUnescape(c.Params("*"))
	if err != nil || strings.TrimSpace(objectPath) == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
	}

	f, err := h.storage.Open(objectPath)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrInvalidPath) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
		}
		log.Printf("Error opening upload %s: %v", objectPath, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not read file",
			"error":   err.Error(),
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Printf("Error reading upload %s: %v", objectPath, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not read file",
			"error":   err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, mimetype.Detect(data).String())
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}
