package repositories

import (
	"context"
	"fmt"
	"sync"

	"hightech/internal/models"

	"github.com/google/uuid"
)

// MockDocumentStore is an in-memory implementation of DocumentStore.
type MockDocumentStore struct {
	collections map[string]map[string]map[string]interface{}
	mu          sync.RWMutex
	hub         *watchHub
}

// NewMockDocumentStore creates a new instance of MockDocumentStore.
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		collections: make(map[string]map[string]map[string]interface{}),
		hub:         newWatchHub(0),
	}
}

// Watch starts a live query over one collection.
func (r *MockDocumentStore) Watch(query models.DocumentQuery, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if query.Collection == "" {
		return nil, fmt.Errorf("watch requires a collection")
	}
	return r.hub.watch(query, r.fetch, onSnapshot, onError), nil
}

func (r *MockDocumentStore) fetch(_ context.Context, q models.DocumentQuery) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	coll := r.collections[q.Collection]
	docs := make([]models.Document, 0, len(coll))
	for id, data := range coll {
		docs = append(docs, models.Document{ID: id, Data: copyData(data)})
	}
	return applyQuery(docs, q), nil
}

// Get returns a document by its ID.
func (r *MockDocumentStore) Get(_ context.Context, collection, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.collections[collection][id]
	if !ok {
		return nil, notFound(collection, id)
	}
	return &models.Document{ID: id, Data: copyData(data)}, nil
}

// Insert adds a new document and returns its generated ID.
func (r *MockDocumentStore) Insert(_ context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()

	r.mu.Lock()
	coll, ok := r.collections[collection]
	if !ok {
		coll = make(map[string]map[string]interface{})
		r.collections[collection] = coll
	}
	coll[id] = copyData(data)
	r.mu.Unlock()

	r.hub.publish(collection)
	return id, nil
}

// Update merges fields into an existing document.
func (r *MockDocumentStore) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	r.mu.Lock()
	data, ok := r.collections[collection][id]
	if !ok {
		r.mu.Unlock()
		return notFound(collection, id)
	}
	for k, v := range copyData(fields) {
		data[k] = v
	}
	r.mu.Unlock()

	r.hub.publish(collection)
	return nil
}

// Delete removes a document by its ID.
func (r *MockDocumentStore) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	if _, ok := r.collections[collection][id]; !ok {
		r.mu.Unlock()
		return notFound(collection, id)
	}
	delete(r.collections[collection], id)
	r.mu.Unlock()

	r.hub.publish(collection)
	return nil
}

// Close stops every live query.
func (r *MockDocumentStore) Close() error {
	r.hub.closeAll()
	return nil
}

// compile-time check
var _ DocumentStore = (*MockDocumentStore)(nil)

