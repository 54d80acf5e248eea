package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// CartLineItem es la foto del producto al momento de agregarlo; no se resincroniza con el catálogo.
type CartLineItem struct {
	ID          ProductID        `json:"id"`
	Nombre      string           `json:"nombre"`
	Descripcion string           `json:"descripcion,omitempty"`
	Imagen      string           `json:"imagen,omitempty"`
	Precio      *decimal.Decimal `json:"precio"`
	Stock       int              `json:"stock"`
	Categoria   string           `json:"categoria"`
	Cantidad    int              `json:"cantidad"`
}

func NewCartLineItem(p Product, cantidad int) CartLineItem {
	return CartLineItem{
		ID:          p.ID,
		Nombre:      p.Nombre,
		Descripcion: p.Descripcion,
		Imagen:      p.Image(),
		Precio:      p.Precio,
		Stock:       p.Stock,
		Categoria:   p.Categoria,
		Cantidad:    cantidad,
	}
}

func (it CartLineItem) Subtotal() decimal.Decimal {
	if it.Precio == nil {
		return decimal.Zero
	}
	return it.Precio.Mul(decimal.NewFromInt(int64(it.Cantidad)))
}

// Cart mantiene el orden de inserción y no repite ids.
type Cart []CartLineItem

func (c Cart) IndexOf(id ProductID) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) Find(id ProductID) (CartLineItem, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c[i], true
	}
	return CartLineItem{}, false
}

// Remove devuelve un carrito nuevo sin el id; el original no se toca.
func (c Cart) Remove(id ProductID) Cart {
	out := make(Cart, 0, len(c))
	for _, it := range c {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c {
		n += it.Cantidad
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c Cart) IsEmpty() bool { return len(c) == 0 }

// BadgeText es el texto del contador del navbar.
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice es el toast que ve el usuario tras una operación del carrito.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type CartEventKind string

const (
	CartChanged CartEventKind = "changed"
	CartNotice  CartEventKind = "notice"
	CartSynced  CartEventKind = "synced"
)

type CartEvent struct {
	Kind   CartEventKind
	Count  int
	Notice *Notice
}
