package domain

import (
	"context"
	"io"
)

// KeyValueStore es el almacenamiento persistente tipo localStorage: claves string, valores JSON.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// StorageEvent avisa que otra instancia modificó una clave compartida.
type StorageEvent struct {
	Key     string
	Value   string
	Removed bool
}

// StorageWatcher lo implementan los backends que pueden notificar cambios hechos por otros.
type StorageWatcher interface {
	Watch(ctx context.Context, fn func(StorageEvent)) (stop func(), err error)
}

type ProductAPI interface {
	List(ctx context.Context, q ProductQuery) ([]Product, error)
	Get(ctx context.Context, id ProductID) (*Product, error)
	ListByCategoria(ctx context.Context, categoria string) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, in ProductInput) (*Product, error)
	Update(ctx context.Context, id ProductID, in ProductInput) (*Product, error)
	Delete(ctx context.Context, id ProductID) error
}

type CarouselAPI interface {
	List(ctx context.Context, activo *bool) ([]CarouselItem, error)
	Get(ctx context.Context, id string) (*CarouselItem, error)
	Create(ctx context.Context, in CarouselInput) (*CarouselItem, error)
	Update(ctx context.Context, id string, in CarouselInput) (*CarouselItem, error)
	Delete(ctx context.Context, id string) error
}

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, email, nombre, password string) (*AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, nombre string) error
	ChangePassword(ctx context.Context, current, next string) error
}

type Notifier interface {
	Notify(n Notice)
}

// Confirmer es el paso de confirmación explícita antes de vaciar el carrito.
type Confirmer interface {
	Confirm(prompt string) bool
}

type CatalogExporter interface {
	Export(w io.Writer, products []Product) error
}
