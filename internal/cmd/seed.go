package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"hightech/internal/config"
	"hightech/internal/models"
	"hightech/internal/repositories"
	"hightech/internal/server"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample catalog into empty collections",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var sampleDXFFiles = []models.DXFFile{
	{Name: "Parametric Gearbox Assembly DXF", Category: "Mechanical", Price: 3500, Complexity: "Advanced", Downloads: 128, Rating: 4.8, Format: "DXF + PDF",
		Description: "Fully constrained gearbox plates, shafts, and spacer set ready for CNC routing."},
	{Name: "Architectural Facade Screen", Category: "Architectural", Price: 2800, Complexity: "Intermediate", Downloads: 212, Rating: 4.7, Format: "DXF",
		Description: "Parametric lattice pattern optimized for laser cutting and facade panels."},
	{Name: "Industrial Bracket Pack", Category: "Mechanical", Price: 2200, Complexity: "Intermediate", Downloads: 96, Rating: 4.5, Format: "DXF",
		Description: "10 high-strength bracket templates with chamfered edges and drilling guides."},
	{Name: "Motorsport Gauge Cluster", Category: "Automotive", Price: 3200, Complexity: "Advanced", Downloads: 74, Rating: 4.6, Format: "DXF",
		Description: "Dashboard cluster with labeled mounting holes and wiring channels."},
	{Name: "Decorative Wall Panel Set", Category: "Decorative", Price: 1800, Complexity: "Beginner", Downloads: 340, Rating: 4.9, Format: "DXF + SVG",
		Description: "Three geometric panels sized for CO2 laser beds up to 600mm."},
	{Name: "Carbon Fiber Drone Frame", Category: "Mechanical", Price: 4200, Complexity: "Advanced", Downloads: 51, Rating: 4.4, Format: "DXF",
		Description: "Lightweight FPV frame plates with integrated cable channels and standoff holes."},
}

var samplePrintItems = []models.PrintItem{
	{Name: "Articulated Dragon", Category: "Figurines", Price: 1500, Material: "PLA", PrintTime: "2-3 days", Orders: 87, Rating: 4.8, RushAvailable: true,
		Description: "Print-in-place articulated dragon, 30cm long, in your choice of colour."},
	{Name: "Cable Management Clips (20 pack)", Category: "Functional Parts", Price: 600, Material: "PETG", PrintTime: "1-2 days", Orders: 153, Rating: 4.6, RushAvailable: true,
		Description: "Snap-fit desk clips for cables up to 8mm."},
	{Name: "Tabletop Hero Miniatures", Category: "Miniatures", Price: 1200, Material: "Resin", PrintTime: "3-4 days", Orders: 64, Rating: 4.9,
		Description: "Set of five 32mm heroic scale miniatures with sub-millimetre detail."},
	{Name: "Hex Bit Organizer", Category: "Tools", Price: 800, Material: "ABS", PrintTime: "2-3 days", Orders: 41, Rating: 4.5,
		Description: "Wall-mountable holder for 48 hex bits with labelled rows."},
	{Name: "Geometric Planter", Category: "Decorative", Price: 900, Material: "PLA", PrintTime: "2-3 days", Orders: 119, Rating: 4.7, RushAvailable: true,
		Description: "Faceted planter with drainage tray, 12cm diameter."},
	{Name: "Gear Reduction Housing", Category: "Functional Parts", Price: 2400, Material: "Nylon", PrintTime: "4-5 days", Orders: 23, Rating: 4.4,
		Description: "Heat resistant housing for NEMA 17 planetary reducers."},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBDriver == config.DriverMemory {
		return fmt.Errorf("db_driver %q does not persist documents; use serve --seed instead", cfg.DBDriver)
	}

	stores, err := server.OpenStores(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer stores.Close()

	return seedCatalog(context.Background(), stores.Docs)
}

// seedCatalog inserts the sample products into collections that have no documents yet.
func seedCatalog(ctx context.Context, docs repositories.DocumentStore) error {
	dxfFiles := make([]map[string]interface{}, 0, len(sampleDXFFiles))
	for _, f := range sampleDXFFiles {
		dxfFiles = append(dxfFiles, map[string]interface{}{
			"name": f.Name, "category": f.Category, "price": f.Price, "complexity": f.Complexity,
			"format": f.Format, "description": f.Description, "downloads": f.Downloads, "rating": f.Rating,
		})
	}
	if err := seedCollection(ctx, docs, models.CollectionDXFFiles, dxfFiles); err != nil {
		return err
	}

	printItems := make([]map[string]interface{}, 0, len(samplePrintItems))
	for _, p := range samplePrintItems {
		printItems = append(printItems, map[string]interface{}{
			"name": p.Name, "category": p.Category, "price": p.Price, "material": p.Material,
			"printTime": p.PrintTime, "description": p.Description, "orders": p.Orders,
			"rating": p.Rating, "rushAvailable": p.RushAvailable,
		})
	}
	return seedCollection(ctx, docs, models.CollectionPrintItems, printItems)
}

func seedCollection(ctx context.Context, docs repositories.DocumentStore, collection string, items []map[string]interface{}) error {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	existing, err := repositories.Snapshot(queryCtx, docs, models.DocumentQuery{Collection: collection, Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if len(existing) > 0 {
		log.Printf("%s already has documents, skipping seed", collection)
		return nil
	}

	for _, item := range items {
		id, err := docs.Insert(ctx, collection, item)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", collection, err)
		}
		log.Printf("Seeded %s: %s (ID: %s)", collection, item["name"], id)
	}
	return nil
}
