package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/domain"
)

// SnapshotFunc devuelve el estado completo del backend (clave -> marca de versión o valor).
type SnapshotFunc func(ctx context.Context) (map[string]string, error)

// Poll detecta cambios comparando snapshots sucesivos. Lo usan los backends
// que no tienen notificaciones nativas (archivo, postgres).
func Poll(ctx context.Context, interval time.Duration, snapshot SnapshotFunc, value func(ctx context.Context, key string) string, fn func(domain.StorageEvent)) (func(), error) {
	prev, err := snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cur, err := snapshot(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Warn().Err(err).Msg("poll storage")
					}
					continue
				}
				for _, ev := range Diff(prev, cur) {
					if !ev.Removed && value != nil {
						ev.Value = value(ctx, ev.Key)
					}
					fn(ev)
				}
				prev = cur
			}
		}
	}()
	return cancel, nil
}

// Diff lista las claves nuevas, modificadas o eliminadas entre dos snapshots.
func Diff(prev, cur map[string]string) []domain.StorageEvent {
	var out []domain.StorageEvent
	for k, v := range cur {
		if old, ok := prev[k]; !ok || old != v {
			out = append(out, domain.StorageEvent{Key: k, Value: v})
		}
	}
	for k := range prev {
		if _, ok := cur[k]; !ok {
			out = append(out, domain.StorageEvent{Key: k, Removed: true})
		}
	}
	return out
}
