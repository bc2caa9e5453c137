package models

// Collection names of the two catalog collections in the document store.
const (
	CollectionDXFFiles   = "dxfFiles"
	CollectionPrintItems = "printingItems"
)

// Product kinds as recorded on cart line items.
const (
	KindDXF   = "dxf"
	KindPrint = "3d-print"
)

// Listing is the flattened view of a catalog product used for filtering and sorting.
type Listing struct {
	ID          string
	Name        string
	Description string
	Category    string
	Material    string
	Price       int64
	Popularity  int64
	Rating      float64
}

// Product is implemented by every catalog record.
type Product interface {
	Listing() Listing
}

// DXFFile represents a downloadable cut file in the dxfFiles collection.
type DXFFile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"`
	Complexity  string  `json:"complexity"`
	Format      string  `json:"format"`
	Description string  `json:"description"`
	Image       string  `json:"image,omitempty"`
	Downloads   int64   `json:"downloads"`
	Rating      float64 `json:"rating"`
}

func (f DXFFile) Listing() Listing {
	return Listing{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Price:       f.Price,
		Popularity:  f.Downloads,
		Rating:      f.Rating,
	}
}

// PrintItem represents a ready-to-print model in the printingItems collection.
type PrintItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         int64   `json:"price"`
	Material      string  `json:"material"`
	PrintTime     string  `json:"printTime"`
	Description   string  `json:"description"`
	Image         string  `json:"image,omitempty"`
	Orders        int64   `json:"orders"`
	Rating        float64 `json:"rating"`
	RushAvailable bool    `json:"rushAvailable"`
}

func (p PrintItem) Listing() Listing {
	return Listing{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Material:    p.Material,
		Price:       p.Price,
		Popularity:  p.Orders,
		Rating:      p.Rating,
	}
}
