package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/domain"
)

const watcherBuffer = 64

// Store es un almacenamiento en memoria compartido entre todas las instancias del proceso.
// Cada escritura se notifica a los watchers de forma asíncrona, en orden por watcher.
type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[int]chan domain.StorageEvent
	next     int
}

func New() *Store {
	return &Store{data: map[string]string{}, watchers: map[int]chan domain.StorageEvent{}}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	s.publish(domain.StorageEvent{Key: key, Value: value})
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()
	if existed {
		s.publish(domain.StorageEvent{Key: key, Removed: true})
	}
	return nil
}

func (s *Store) publish(ev domain.StorageEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			log.Warn().Int("watcher", id).Str("key", ev.Key).Msg("storage event descartado, watcher lento")
		}
	}
}

func (s *Store) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	ch := make(chan domain.StorageEvent, watcherBuffer)
	s.mu.Lock()
	id := s.next
	s.next++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.mu.Unlock()
		})
	}

	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				fn(ev)
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()
	return stop, nil
}
