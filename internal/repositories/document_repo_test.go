package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"hightech/internal/models"
	"hightech/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// snapshotRecorder collects snapshots delivered to a live query.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots [][]models.Document
	errs      []error
}

func (r *snapshotRecorder) onSnapshot(docs []models.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, docs)
}

func (r *snapshotRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *snapshotRecorder) last() []models.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func names(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, fmt.Sprint(d.Data["name"]))
	}
	return out
}

func newGORMStore(t *testing.T) *repositories.GORMDocumentStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	store, err := repositories.NewGORMDocumentStore(db, 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMockStore(t *testing.T) *repositories.MockDocumentStore {
	t.Helper()
	store := repositories.NewMockDocumentStore()
	t.Cleanup(func() { store.Close() })
	return store
}

// documentStoreContract runs the shared behaviour every DocumentStore must provide.
func documentStoreContract(t *testing.T, store repositories.DocumentStore) {
	ctx := context.Background()

	t.Run("crud", func(t *testing.T) {
		id, err := store.Insert(ctx, "widgets", map[string]interface{}{"name": "Bracket", "price": 100, "id": "ignored"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.NotEqual(t, "ignored", id)

		doc, err := store.Get(ctx, "widgets", id)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, "Bracket", doc.Data["name"])
		assert.NotContains(t, doc.Data, "id")

		require.NoError(t, store.Update(ctx, "widgets", id, map[string]interface{}{"price": 250}))
		doc, err = store.Get(ctx, "widgets", id)
		require.NoError(t, err)
		assert.Equal(t, "Bracket", doc.Data["name"], "partial update keeps other fields")
		assert.EqualValues(t, 250, doc.Data["price"])

		require.NoError(t, store.Delete(ctx, "widgets", id))
		_, err = store.Get(ctx, "widgets", id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("missing documents", func(t *testing.T) {
		assert.ErrorIs(t, store.Update(ctx, "widgets", "nope", map[string]interface{}{"a": 1}), repositories.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "widgets", "nope"), repositories.ErrNotFound)
	})

	t.Run("watch orders by field and follows writes", func(t *testing.T) {
		_, err := store.Insert(ctx, "gadgets", map[string]interface{}{"name": "Charlie"})
		require.NoError(t, err)
		_, err = store.Insert(ctx, "gadgets", map[string]interface{}{"name": "Alpha"})
		require.NoError(t, err)

		rec := &snapshotRecorder{}
		sub, err := store.Watch(models.DocumentQuery{Collection: "gadgets", OrderBy: "name"}, rec.onSnapshot, rec.onError)
		require.NoError(t, err)
		defer sub.Unsubscribe()

		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual([]string{"Alpha", "Charlie"}, names(rec.last()))
		}, time.Second, 5*time.Millisecond)

		_, err = store.Insert(ctx, "gadgets", map[string]interface{}{"name": "Bravo"})
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return assert.ObjectsAreEqual([]string{"Alpha", "Bravo", "Charlie"}, names(rec.last()))
		}, time.Second, 5*time.Millisecond)

		sub.Unsubscribe()
		delivered := rec.count()
		_, err = store.Insert(ctx, "gadgets", map[string]interface{}{"name": "Delta"})
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, delivered, rec.count(), "no snapshot after unsubscribe")
		assert.Empty(t, rec.errs)
	})

	t.Run("empty collection delivers empty snapshot", func(t *testing.T) {
		docs, err := repositories.Snapshot(ctx, store, models.DocumentQuery{Collection: "empty"})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("snapshot honours limit", func(t *testing.T) {
		for _, n := range []string{"c", "a", "b"} {
			_, err := store.Insert(ctx, "limited", map[string]interface{}{"name": n})
			require.NoError(t, err)
		}
		docs, err := repositories.Snapshot(ctx, store, models.DocumentQuery{Collection: "limited", OrderBy: "name", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names(docs))
	})
}

func TestMockDocumentStore(t *testing.T) {
	documentStoreContract(t, newMockStore(t))
}

func TestGORMDocumentStore(t *testing.T) {
	documentStoreContract(t, newGORMStore(t))
}

func TestMockDocumentStore_WatchRequiresCollection(t *testing.T) {
	store := newMockStore(t)
	_, err := store.Watch(models.DocumentQuery{}, func([]models.Document) {}, nil)
	assert.Error(t, err)
}

func TestMockDocumentStore_NumericOrdering(t *testing.T) {
	store := newMockStore(t)
	ctx := context.Background()
	for _, price := range []int{300, 20, 1000} {
		_, err := store.Insert(ctx, "priced", map[string]interface{}{"price": price})
		require.NoError(t, err)
	}
	_, err := store.Insert(ctx, "priced", map[string]interface{}{"name": "no price"})
	require.NoError(t, err)

	docs, err := repositories.Snapshot(ctx, store, models.DocumentQuery{Collection: "priced", OrderBy: "price"})
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Nil(t, docs[0].Data["price"], "missing values sort first")
	assert.Equal(t, 20, docs[1].Data["price"])
	assert.Equal(t, 300, docs[2].Data["price"])
	assert.Equal(t, 1000, docs[3].Data["price"])
}

func TestMockDocumentStore_CloseStopsWatchers(t *testing.T) {
	store := repositories.NewMockDocumentStore()
	rec := &snapshotRecorder{}
	_, err := store.Watch(models.DocumentQuery{Collection: "things"}, rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	_, err = store.Insert(context.Background(), "things", map[string]interface{}{"name": "late"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}
