package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"hightech/internal/models"

	"github.com/spf13/cast"
)

// ErrNotFound is returned when a document or record does not exist.
var ErrNotFound = errors.New("not found")

// SnapshotFunc receives the full, ordered result set of a live query every time it changes.
type SnapshotFunc func(docs []models.Document)

// ErrorFunc receives failures of a live query.
type ErrorFunc func(err error)

// Subscription is the handle returned by Watch. No callback runs after Unsubscribe returns.
// Unsubscribe must not be called from inside a callback of the same subscription.
type Subscription interface {
	Unsubscribe()
}

// DocumentStore defines the interface for the managed document database.
type DocumentStore interface {
	Watch(query models.DocumentQuery, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Snapshot runs a live query once and returns its first result.
func Snapshot(ctx context.Context, store DocumentStore, q models.DocumentQuery) ([]models.Document, error) {
	type result struct {
		docs []models.Document
		err  error
	}
	ch := make(chan result, 1)
	deliver := func(r result) {
		select {
		case ch <- r:
		default:
		}
	}

	sub, err := store.Watch(q,
		func(docs []models.Document) { deliver(result{docs: docs}) },
		func(err error) { deliver(result{err: err}) },
	)
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	select {
	case r := <-ch:
		return r.docs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func notFound(collection, id string) error {
	return fmt.Errorf("document %s in %s: %w", id, collection, ErrNotFound)
}

// applyQuery orders and truncates docs in place for stores that cannot do it natively.
func applyQuery(docs []models.Document, q models.DocumentQuery) []models.Document {
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			return compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy]) < 0
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

// compareValues orders missing values first, numbers numerically and everything else as strings.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	af, aErr := cast.ToFloat64E(a)
	bf, bErr := cast.ToFloat64E(b)
	if aErr == nil && bErr == nil {
		if _, isStr := a.(string); !isStr {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}
