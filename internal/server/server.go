package server

import (
	"log"
	"time"

	"hightech/internal/config"
	"hightech/internal/handlers"
	"hightech/internal/middleware"
	"hightech/internal/models"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/shopspring/decimal"
)

// APIPrefix is the mount point of the JSON API.
const APIPrefix = "/api/v1"

// Server is the storefront HTTP application and the services behind it.
type Server struct {
	App      *fiber.App
	Auth     *services.AuthService
	DXF      *services.CatalogStore[models.DXFFile]
	Print    *services.CatalogStore[models.PrintItem]
	Carts    *services.CartService
	Checkout *services.CheckoutService
	Consoles *services.ConsoleRegistry
}

// New wires services and routes on top of stores. Catalog stores start immediately; a
// failing subscription leaves that catalog empty.
func New(cfg *config.Config, stores *Stores) *Server {
	dxfFiles := services.NewDXFCatalog(stores.Docs)
	if err := dxfFiles.Start(); err != nil {
		log.Printf("DXF catalog unavailable: %v", err)
	}
	printItems := services.NewPrintCatalog(stores.Docs)
	if err := printItems.Start(); err != nil {
		log.Printf("Printing catalog unavailable: %v", err)
	}

	carts := services.NewCartService(stores.Carts)
	checkout := services.NewCheckoutService(carts, stores.Publisher(), services.CheckoutConfig{
		TaxRate:       decimal.NewFromFloat(cfg.CheckoutTaxRate),
		SettleDelay:   cfg.CheckoutSettleDelay,
		OrderIDPrefix: cfg.OrderIDPrefix,
	})
	authService := services.NewAuthService(stores.Users, cfg.JWTSecret, cfg.TokenTTL)
	consoles := services.NewConsoleRegistry(services.ConsoleDeps{
		Docs:    stores.Docs,
		DXF:     dxfFiles,
		Print:   printItems,
		Uploads: services.NewUploadService(stores.Objects, cfg.UploadMaxImageWidth),
	})
	authService.OnSessionChanged(consoles.HandleSessionChange)
	inquiries := services.NewInquiryService(stores.Publisher())

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitMQ": stores.Events != nil,
		})
	})
	handlers.NewUploadHandler(stores.Objects).RegisterRoutes(app)

	sessions := session.New()
	apiV1 := app.Group(APIPrefix, middleware.CartID(cfg.CartTTL))
	handlers.NewCatalogHandler(dxfFiles, printItems).RegisterRoutes(apiV1)
	handlers.NewCartHandler(carts, dxfFiles, printItems).RegisterRoutes(apiV1)
	handlers.NewCheckoutHandler(checkout, sessions, APIPrefix).RegisterRoutes(apiV1)
	handlers.NewInquiryHandler(inquiries).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewAdminHandler(authService, consoles).RegisterRoutes(apiV1)

	return &Server{
		App:      app,
		Auth:     authService,
		DXF:      dxfFiles,
		Print:    printItems,
		Carts:    carts,
		Checkout: checkout,
		Consoles: consoles,
	}
}

// Shutdown stops the HTTP server and the catalog subscriptions.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	s.DXF.Close()
	s.Print.Close()
	return err
}
