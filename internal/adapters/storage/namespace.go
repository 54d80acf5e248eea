package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/phenrril/aurum/internal/domain"
)

// Namespaced aísla las claves de un visitante (el "origen" del navegador) dentro de un backend compartido.
type Namespaced struct {
	inner  domain.KeyValueStore
	prefix string
}

func NewNamespaced(inner domain.KeyValueStore, namespace string) *Namespaced {
	return &Namespaced{inner: inner, prefix: namespace + ":"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}

// Watch filtra los eventos del backend a las claves de este namespace.
func (n *Namespaced) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	w, ok := n.inner.(domain.StorageWatcher)
	if !ok {
		return nil, errors.New("el backend no soporta notificaciones de cambios")
	}
	return w.Watch(ctx, func(ev domain.StorageEvent) {
		if !strings.HasPrefix(ev.Key, n.prefix) {
			return
		}
		ev.Key = strings.TrimPrefix(ev.Key, n.prefix)
		fn(ev)
	})
}
