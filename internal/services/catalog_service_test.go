package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hightech/internal/models"
	"hightech/internal/repositories"
	"hightech/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every live query.
type brokenStore struct {
	repositories.DocumentStore
	watchErr error // returned by Watch itself
	liveErr  error // delivered through onError
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func (s *brokenStore) Watch(_ models.DocumentQuery, _ repositories.SnapshotFunc, onError repositories.ErrorFunc) (repositories.Subscription, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	go onError(s.liveErr)
	return noopSubscription{}, nil
}

func insertDXF(t *testing.T, store repositories.DocumentStore, data map[string]interface{}) string {
	t.Helper()
	id, err := store.Insert(context.Background(), models.CollectionDXFFiles, data)
	require.NoError(t, err)
	return id
}

func startedDXFCatalog(t *testing.T, store repositories.DocumentStore) *services.CatalogStore[models.DXFFile] {
	t.Helper()
	catalog := services.NewDXFCatalog(store)
	require.NoError(t, catalog.Start())
	t.Cleanup(catalog.Close)
	require.Eventually(t, func() bool { return !catalog.Loading() }, time.Second, 5*time.Millisecond)
	return catalog
}

func listingNames[T models.Product](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Listing().Name)
	}
	return out
}

func TestCatalogStore_LoadsSnapshotOrderedByName(t *testing.T) {
	store := repositories.NewMockDocumentStore()
	defer store.Close()

	insertDXF(t, store, map[string]interface{}{"name": "Drone Frame", "price": 4200})
	gearID := insertDXF(t, store, map[string]interface{}{"name": "Gearbox", "price": "3500", "downloads": 128.0, "rating": "4.8"})
	insertDXF(t, store, map[string]interface{}{"name": "Bracket Pack", "price": 2200})

	catalog := services.NewDXFCatalog(store)
	assert.True(t, catalog.Loading(), "loading until the first snapshot")
	require.NoError(t, catalog.Start())
	defer catalog.Close()

	require.Eventually(t, func() bool { return !catalog.Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Bracket Pack", "Drone Frame", "Gearbox"}, listingNames(catalog.List()))

	gear, ok := catalog.Get(gearID)
	require.True(t, ok)
	assert.Equal(t, gearID, gear.ID)
	assert.Equal(t, int64(3500), gear.Price, "numeric strings decode into numbers")
	assert.Equal(t, int64(128), gear.Downloads)
	assert.Equal(t, 4.8, gear.Rating)
	assert.Empty(t, gear.Category, "missing fields stay zero")

	assert.Len(t, catalog.Snapshot(), 3)
}

func TestCatalogStore_EmptyCollectionClearsLoading(t *testing.T) {
	store := repositories.NewMockDocumentStore()
	defer store.Close()

	catalog := startedDXFCatalog(t, store)
	assert.Empty(t, catalog.List())
	assert.Empty(t, catalog.Snapshot())
}

func TestCatalogStore_FollowsWrites(t *testing.T) {
	store := repositories.NewMockDocumentStore()
	defer store.Close()

	catalog := startedDXFCatalog(t, store)
	id := insertDXF(t, store, map[string]interface{}{"name": "Wall Panel", "price": 1800})
	assert.Eventually(t, func() bool {
		_, ok := catalog.Get(id)
		return ok
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Delete(context.Background(), models.CollectionDXFFiles, id))
	assert.Eventually(t, func() bool { return len(catalog.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestCatalogStore_SubscriptionErrorLeavesEmptyStore(t *testing.T) {
	catalog := services.NewPrintCatalog(&brokenStore{liveErr: errors.New("permission denied")})
	require.NoError(t, catalog.Start())
	defer catalog.Close()

	assert.Eventually(t, func() bool { return !catalog.Loading() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, catalog.List())
}

func TestCatalogStore_WatchFailure(t *testing.T) {
	catalog := services.NewDXFCatalog(&brokenStore{watchErr: errors.New("unreachable")})
	err := catalog.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.False(t, catalog.Loading())
	assert.Empty(t, catalog.List())
	catalog.Close()
}

func TestCatalogStore_CloseStopsUpdates(t *testing.T) {
	store := repositories.NewMockDocumentStore()
	defer store.Close()

	catalog := services.NewDXFCatalog(store)
	require.NoError(t, catalog.Start())
	require.Eventually(t, func() bool { return !catalog.Loading() }, time.Second, 5*time.Millisecond)
	catalog.Close()

	insertDXF(t, store, map[string]interface{}{"name": "Late"})
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, catalog.List())
}
