package services

import (
	"fmt"
	"log"
	"sync"

	"hightech/internal/models"
	"hightech/internal/repositories"

	"github.com/go-viper/mapstructure/v2"
)

// CatalogStore keeps a live snapshot of one product collection.
type CatalogStore[T models.Product] struct {
	docs       repositories.DocumentStore
	collection string
	decode     func(models.Document) (T, error)

	mu       sync.RWMutex
	products map[string]T
	order    []string
	loading  bool
	sub      repositories.Subscription
}

// NewCatalogStore creates a store over collection; it starts loading on Start.
func NewCatalogStore[T models.Product](docs repositories.DocumentStore, collection string, decode func(models.Document) (T, error)) *CatalogStore[T] {
	return &CatalogStore[T]{
		docs:       docs,
		collection: collection,
		decode:     decode,
		products:   make(map[string]T),
		loading:    true,
	}
}

// NewDXFCatalog creates the catalog store of cut files.
func NewDXFCatalog(docs repositories.DocumentStore) *CatalogStore[models.DXFFile] {
	return NewCatalogStore(docs, models.CollectionDXFFiles, DecodeDXFFile)
}

// NewPrintCatalog creates the catalog store of printing items.
func NewPrintCatalog(docs repositories.DocumentStore) *CatalogStore[models.PrintItem] {
	return NewCatalogStore(docs, models.CollectionPrintItems, DecodePrintItem)
}

// Collection returns the name of the backing collection.
func (s *CatalogStore[T]) Collection() string {
	return s.collection
}

// Start subscribes to the collection ordered by name. A failure to subscribe is logged and
// leaves the store empty and not loading.
func (s *CatalogStore[T]) Start() error {
	sub, err := s.docs.Watch(models.DocumentQuery{Collection: s.collection, OrderBy: "name"}, s.apply, s.fail)
	if err != nil {
		s.fail(err)
		return fmt.Errorf("failed to watch %s: %w", s.collection, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// Close tears the subscription down. No snapshot is applied after Close returns.
func (s *CatalogStore[T]) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *CatalogStore[T]) apply(docs []models.Document) {
	products := make(map[string]T, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		p, err := s.decode(doc)
		if err != nil {
			log.Printf("Skipping malformed document %s in %s: %v", doc.ID, s.collection, err)
			continue
		}
		products[doc.ID] = p
		order = append(order, doc.ID)
	}

	s.mu.Lock()
	s.products = products
	s.order = order
	s.loading = false
	s.mu.Unlock()
}

func (s *CatalogStore[T]) fail(err error) {
	log.Printf("Error loading %s: %v", s.collection, err)

	s.mu.Lock()
	s.products = make(map[string]T)
	s.order = nil
	s.loading = false
	s.mu.Unlock()
}

// Loading reports whether the first snapshot is still pending.
func (s *CatalogStore[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns a copy of the current id → product mapping.
func (s *CatalogStore[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]T, len(s.products))
	for id, p := range s.products {
		out[id] = p
	}
	return out
}

// Get returns a product by id from the current snapshot.
func (s *CatalogStore[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// List returns every product ordered by name.
func (s *CatalogStore[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// Query filters and sorts the current snapshot.
func (s *CatalogStore[T]) Query(q CatalogQuery) []T {
	return Apply(s.List(), q)
}

func decodeDocument(doc models.Document, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(doc.Data)
}

// DecodeDXFFile converts a dxfFiles document into a DXFFile. Missing fields stay zero.
func DecodeDXFFile(doc models.Document) (models.DXFFile, error) {
	var f models.DXFFile
	if err := decodeDocument(doc, &f); err != nil {
		return models.DXFFile{}, fmt.Errorf("failed to decode dxf file %s: %w", doc.ID, err)
	}
	f.ID = doc.ID
	return f, nil
}

// DecodePrintItem converts a printingItems document into a PrintItem. Missing fields stay zero.
func DecodePrintItem(doc models.Document) (models.PrintItem, error) {
	var p models.PrintItem
	if err := decodeDocument(doc, &p); err != nil {
		return models.PrintItem{}, fmt.Errorf("failed to decode printing item %s: %w", doc.ID, err)
	}
	p.ID = doc.ID
	return p, nil
}
