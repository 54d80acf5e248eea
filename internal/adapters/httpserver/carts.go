package httpserver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/adapters/storage"
	"github.com/phenrril/aurum/internal/domain"
	"github.com/phenrril/aurum/internal/usecase"
)

const sidPrefix = "sid:"

// CartRegistry mantiene un CartStore por visitante sobre un KV compartido.
// Cada visitante tiene su propio namespace de claves, como el localStorage de un navegador.
// Un único watcher sobre el KV reparte los cambios al carrito del visitante que corresponde.
type CartRegistry struct {
	ctx       context.Context
	kv        domain.KeyValueStore
	key       string
	legacyKey string

	mu      sync.Mutex
	entries map[string]*cartEntry

	stopOnce  sync.Once
	stopWatch func()
}

type cartEntry struct {
	store *usecase.CartStore
	seen  time.Time
}

func NewCartRegistry(ctx context.Context, kv domain.KeyValueStore, key, legacyKey string) *CartRegistry {
	r := &CartRegistry{
		ctx:       ctx,
		kv:        kv,
		key:       key,
		legacyKey: legacyKey,
		entries:   map[string]*cartEntry{},
		stopWatch: func() {},
	}
	if w, ok := kv.(domain.StorageWatcher); ok {
		stop, err := w.Watch(ctx, r.dispatch)
		if err != nil {
			log.Warn().Err(err).Msg("watch carritos")
		} else {
			r.stopWatch = stop
		}
	}
	return r
}

// dispatch recibe claves "sid:<sid>:<clave>" y refresca solo el carrito cargado de ese sid.
func (r *CartRegistry) dispatch(ev domain.StorageEvent) {
	rest, ok := strings.CutPrefix(ev.Key, sidPrefix)
	if !ok {
		return
	}
	sid, key, ok := strings.Cut(rest, ":")
	if !ok || (key != r.key && (r.legacyKey == "" || key != r.legacyKey)) {
		return
	}
	r.mu.Lock()
	e, ok := r.entries[sid]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.store.Refresh(r.ctx)
}

func (r *CartRegistry) For(sid string) *usecase.CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sid]; ok {
		e.seen = time.Now()
		return e.store
	}

	ns := storage.NewNamespaced(r.kv, sidPrefix+sid)
	st := usecase.NewCartStore(ns, r.key,
		usecase.WithLegacyKey(r.legacyKey),
		usecase.WithLogger(log.With().Str("sid", sid).Logger()),
	)
	r.entries[sid] = &cartEntry{store: st, seen: time.Now()}
	return st
}

func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep suelta los carritos sin uso hace más de maxIdle. Lo persistido queda en el KV.
func (r *CartRegistry) Sweep(maxIdle time.Duration) int {
	limit := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, e := range r.entries {
		if e.seen.Before(limit) {
			delete(r.entries, sid)
			n++
		}
	}
	return n
}

// Run barre periódicamente hasta que ctx termine.
func (r *CartRegistry) Run(ctx context.Context, every, maxIdle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-t.C:
			if n := r.Sweep(maxIdle); n > 0 {
				log.Debug().Int("carritos", n).Msg("carritos inactivos liberados")
			}
		}
	}
}

// Close corta el watcher y suelta todos los carritos.
func (r *CartRegistry) Close() {
	r.stopOnce.Do(r.stopWatch)
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid := range r.entries {
		delete(r.entries, sid)
	}
}
