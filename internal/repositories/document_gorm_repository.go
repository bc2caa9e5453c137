package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hightech/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMDocumentStore is a GORM implementation of DocumentStore. Documents are stored as JSON
// text in a single table partitioned by collection.
type GORMDocumentStore struct {
	db  *gorm.DB
	hub *watchHub
}

// NewGORMDocumentStore creates a new GORMDocumentStore and migrates its table.
func NewGORMDocumentStore(db *gorm.DB, poll time.Duration) (*GORMDocumentStore, error) {
	if err := db.AutoMigrate(&models.DocumentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &GORMDocumentStore{
		db:  db,
		hub: newWatchHub(poll),
	}, nil
}

// Watch starts a live query over one collection.
func (r *GORMDocumentStore) Watch(query models.DocumentQuery, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if query.Collection == "" {
		return nil, fmt.Errorf("watch requires a collection")
	}
	return r.hub.watch(query, r.fetch, onSnapshot, onError), nil
}

func (r *GORMDocumentStore) fetch(ctx context.Context, q models.DocumentQuery) ([]models.Document, error) {
	var records []models.DocumentRecord
	if err := r.db.WithContext(ctx).Where("collection = ?", q.Collection).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}

	docs := make([]models.Document, 0, len(records))
	for _, rec := range records {
		doc, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return applyQuery(docs, q), nil
}

func decodeRecord(rec models.DocumentRecord) (*models.Document, error) {
	data := make(map[string]interface{})
	if rec.Data != "" {
		if err := json.Unmarshal([]byte(rec.Data), &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", rec.ID, err)
		}
	}
	return &models.Document{ID: rec.ID, Data: data}, nil
}

// Get retrieves a single document by its ID.
func (r *GORMDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	var rec models.DocumentRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ? AND collection = ?", id, collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(collection, id)
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return decodeRecord(rec)
}

// Insert creates a new document and returns its generated ID.
func (r *GORMDocumentStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	body, err := json.Marshal(copyData(data))
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	rec := models.DocumentRecord{
		ID:         uuid.New().String(),
		Collection: collection,
		Data:       string(body),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}

	r.hub.publish(collection)
	return rec.ID, nil
}

// Update merges fields into an existing document.
func (r *GORMDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.DocumentRecord
		if err := tx.First(&rec, "id = ? AND collection = ?", id, collection).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(collection, id)
			}
			return err
		}

		doc, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		for k, v := range copyData(fields) {
			doc.Data[k] = v
		}
		body, err := json.Marshal(doc.Data)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return tx.Model(&rec).Update("data", string(body)).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}

	r.hub.publish(collection)
	return nil
}

// Delete deletes a document by its ID.
func (r *GORMDocumentStore) Delete(ctx context.Context, collection, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.DocumentRecord{}, "id = ? AND collection = ?", id, collection)
	if res.Error != nil {
		return fmt.Errorf("failed to delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(collection, id)
	}

	r.hub.publish(collection)
	return nil
}

// Close stops every live query. The *gorm.DB is owned by the caller.
func (r *GORMDocumentStore) Close() error {
	r.hub.closeAll()
	return nil
}

var _ DocumentStore = (*GORMDocumentStore)(nil)
