package repositories

import (
	"context"
	"log"
	"sync"
	"time"

	"hightech/internal/models"
)

const watchFetchTimeout = 10 * time.Second

type fetchFunc func(ctx context.Context, q models.DocumentQuery) ([]models.Document, error)

// watchHub fans collection changes out to live queries. Stores call publish after every
// successful write; a non-zero poll interval also refreshes watchers periodically so writes
// made by other processes are picked up.
type watchHub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	poll     time.Duration
}

func newWatchHub(poll time.Duration) *watchHub {
	if poll < 0 {
		poll = 0
	}
	return &watchHub{
		watchers: make(map[*watcher]struct{}),
		poll:     poll,
	}
}

type watcher struct {
	hub        *watchHub
	query      models.DocumentQuery
	fetch      fetchFunc
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	deliverMu sync.Mutex
	stopped   bool
}

func (h *watchHub) watch(q models.DocumentQuery, fetch fetchFunc, onSnapshot SnapshotFunc, onError ErrorFunc) *watcher {
	w := &watcher{
		hub:        h,
		query:      q,
		fetch:      fetch,
		onSnapshot: onSnapshot,
		onError:    onError,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	h.mu.Lock()
	h.watchers[w] = struct{}{}
	h.mu.Unlock()

	w.signal() // initial snapshot
	go w.run()
	return w
}

func (h *watchHub) publish(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		if w.query.Collection == collection {
			w.signal()
		}
	}
}

func (h *watchHub) closeAll() {
	h.mu.Lock()
	watchers := make([]*watcher, 0, len(h.watchers))
	for w := range h.watchers {
		watchers = append(watchers, w)
	}
	h.mu.Unlock()

	for _, w := range watchers {
		w.Unsubscribe()
	}
}

// signal coalesces change notifications: one pending refresh is enough.
func (w *watcher) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watcher) run() {
	var tick <-chan time.Time
	if w.hub.poll > 0 {
		ticker := time.NewTicker(w.hub.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-w.done:
			return
		case <-w.notify:
		case <-tick:
		}
		w.refresh()
	}
}

func (w *watcher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), watchFetchTimeout)
	docs, err := w.fetch(ctx, w.query)
	cancel()

	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if w.stopped {
		return
	}
	if err != nil {
		log.Printf("Live query on %s failed: %v", w.query.Collection, err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.onSnapshot(docs)
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (w *watcher) Unsubscribe() {
	w.once.Do(func() {
		w.hub.mu.Lock()
		delete(w.hub.watchers, w)
		w.hub.mu.Unlock()

		close(w.done)

		w.deliverMu.Lock()
		w.stopped = true
		w.deliverMu.Unlock()
	})
}
