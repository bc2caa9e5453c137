package handlers

import (
	"errors"
	"log"

	"hightech/internal/middleware"
	"hightech/internal/repositories"
	"hightech/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the admin console of the signed-in principal.
type AdminHandler struct {
	authService *services.AuthService
	consoles    *services.ConsoleRegistry
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *services.AuthService, consoles *services.ConsoleRegistry) *AdminHandler {
	return &AdminHandler{authService: authService, consoles: consoles}
}

// RegisterRoutes registers the admin console routes, all behind AuthRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	authRequired := middleware.AuthRequired(h.authService)
	admin := router.Group("/admin")
	admin.Get("/items", authRequired, h.HandleListItems)

	console := admin.Group("/console", authRequired)
	console.Get("/", h.HandleGetConsole)
	console.Post("/tab", h.HandleSwitchTab)
	console.Post("/new", h.HandleStartNew)
	console.Post("/edit/:id", h.HandleStartEdit)
	console.Patch("/form", h.HandleSetFields)
	console.Post("/save", h.HandleSave)
	console.Delete("/items/:id", h.HandleDelete)
	console.Post("/image", h.HandleUploadImage)
}

func (h *AdminHandler) console(c *fiber.Ctx) *services.Console {
	p, _ := middleware.CurrentPrincipal(c)
	return h.consoles.Get(p.ID)
}

func consoleError(c *fiber.Ctx, console *services.Console, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
		"console": console.State(),
	})
}

// HandleGetConsole returns the console state.
func (h *AdminHandler) HandleGetConsole(c *fiber.Ctx) error {
	return c.JSON(h.console(c).State())
}

// HandleListItems lists the items of the active tab.
func (h *AdminHandler) HandleListItems(c *fiber.Ctx) error {
	return c.JSON(h.console(c).List())
}

// HandleSwitchTab activates the "dxf" or "print" tab.
func (h *AdminHandler) HandleSwitchTab(c *fiber.Ctx) error {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	console := h.console(c)
	if err := console.SwitchTab(services.Tab(req.Tab)); err != nil {
		return consoleError(c, console, fiber.StatusBadRequest, err)
	}
	return c.JSON(console.State())
}

// HandleStartNew resets the form for a new item.
func (h *AdminHandler) HandleStartNew(c *fiber.Ctx) error {
	console := h.console(c)
	console.StartNew()
	return c.JSON(console.State())
}

// HandleStartEdit loads an item into the form.
func (h *AdminHandler) HandleStartEdit(c *fiber.Ctx) error {
	console := h.console(c)
	if err := console.StartEdit(c.Params("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return consoleError(c, console, fiber.StatusNotFound, err)
		}
		return consoleError(c, console, fiber.StatusInternalServerError, err)
	}
	return c.JSON(console.State())
}

// HandleSetFields applies a JSON object of field to value to the form.
func (h *AdminHandler) HandleSetFields(c *fiber.Ctx) error {
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return invalidBody(c, err)
	}

	console := h.console(c)
	if err := console.SetFields(fields); err != nil {
		return consoleError(c, console, fiber.StatusBadRequest, err)
	}
	return c.JSON(console.State())
}

func (h *AdminHandler) HandleSave(c *fiber.Ctx) error {
	console := h.console(c)
	id, err := console.Save(c.UserContext())
	if err != nil {
		var validationErrors validator.ValidationErrors
		switch {
		case errors.Is(err, services.ErrSaveInProgress):
			return consoleError(c, console, fiber.StatusConflict, err)
		case errors.As(err, &validationErrors):
			return consoleError(c, console, fiber.StatusBadRequest, err)
		case errors.Is(err, repositories.ErrNotFound):
			return consoleError(c, console, fiber.StatusNotFound, err)
		}
		return consoleError(c, console, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"message": "Saved",
		"id":      id,
		"console": console.State(),
	})
}

// HandleDelete removes an item of the active tab. Requires ?confirm=true.
func (h *AdminHandler) HandleDelete(c *fiber.Ctx) error {
	console := h.console(c)
	err := console.Delete(c.UserContext(), c.Params("id"), c.QueryBool("confirm"))
	switch {
	case errors.Is(err, services.ErrDeleteNotConfirmed):
		return consoleError(c, console, fiber.StatusPreconditionRequired, err)
	case errors.Is(err, repositories.ErrNotFound):
		return consoleError(c, console, fiber.StatusNotFound, err)
	case err != nil:
		return consoleError(c, console, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"message": "Deleted",
		"console": console.State(),
	})
}

// HandleUploadImage stores the multipart "image" file and sets the form's image URL.
func (h *AdminHandler) HandleUploadImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "image file is required",
			"error":   err.Error(),
		})
	}

	file, err := header.Open()
	if err != nil {
		log.Printf("Error opening uploaded file: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read image",
			"error":   err.Error(),
		})
	}
	defer file.Close()

	console := h.console(c)
	url, err := console.UploadImage(c.UserContext(), header.Filename, file)
	switch {
	case errors.Is(err, services.ErrUploadInProgress):
		return consoleError(c, console, fiber.StatusConflict, err)
	case errors.Is(err, services.ErrUnsupportedImage):
		return consoleError(c, console, fiber.StatusUnsupportedMediaType, err)
	case err != nil:
		return consoleError(c, console, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"url":     url,
		"console": console.State(),
	})
}
