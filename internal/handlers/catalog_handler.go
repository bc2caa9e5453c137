package handlers

import (
	"hightech/internal/models"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves the product listings.
type CatalogHandler struct {
	dxfFiles   *services.CatalogStore[models.DXFFile]
	printItems *services.CatalogStore[models.PrintItem]
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(dxfFiles *services.CatalogStore[models.DXFFile], printItems *services.CatalogStore[models.PrintItem]) *CatalogHandler {
	return &CatalogHandler{dxfFiles: dxfFiles, printItems: printItems}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	catalog := router.Group("/catalog")
	catalog.Get("/dxf-files", h.HandleListDXFFiles)
	catalog.Get("/print-items", h.HandleListPrintItems)
}

func catalogQuery(c *fiber.Ctx) services.CatalogQuery {
	return services.CatalogQuery{
		Search:   c.Query("search"),
		Category: c.Query("category", services.FilterAll),
		Material: c.Query("material", services.FilterAll),
		Sort:     services.SortPolicy(c.Query("sort")),
	}
}

// HandleListDXFFiles lists cut files. Query: search, category, sort.
func (h *CatalogHandler) HandleListDXFFiles(c *fiber.Ctx) error {
	q := catalogQuery(c)
	q.Material = services.FilterAll
	items := h.dxfFiles.Query(q)
	return c.JSON(fiber.Map{
		"loading": h.dxfFiles.Loading(),
		"sort":    q.Sort,
		"count":   len(items),
		"items":   items,
	})
}

// HandleListPrintItems lists printing items. Query: search, category, material, sort.
func (h *CatalogHandler) HandleListPrintItems(c *fiber.Ctx) error {
	q := catalogQuery(c)
	items := h.printItems.Query(q)
	return c.JSON(fiber.Map{
		"loading": h.printItems.Loading(),
		"sort":    q.Sort,
		"count":   len(items),
		"items":   items,
	})
}
