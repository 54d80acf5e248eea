package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductID acepta tanto ids string (uuid del backend) como numéricos (catálogo viejo).
type ProductID string

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id de producto inválido: %s", string(b))
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string { return string(id) }

type Product struct {
	ID          ProductID        `json:"id"`
	Nombre      string           `json:"nombre"`
	Descripcion string           `json:"descripcion,omitempty"`
	Categoria   string           `json:"categoria"`
	Precio      *decimal.Decimal `json:"precio"`
	Stock       int              `json:"stock"`
	Destacado   bool             `json:"destacado"`
	Activo      bool             `json:"activo"`
	Imagen      string           `json:"imagen,omitempty"`
	ImagenURL   string           `json:"imagen_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// Image devuelve la imagen a mostrar: imagen_url del backend o la ruta relativa vieja.
func (p Product) Image() string {
	if s := strings.TrimSpace(p.ImagenURL); s != "" {
		return s
	}
	return strings.TrimSpace(p.Imagen)
}

// HasPrice es false para productos "consultar precio".
func (p Product) HasPrice() bool { return p.Precio != nil }

// PriceOrZero trata el precio ausente como 0 para ordenar y totalizar.
func (p Product) PriceOrZero() decimal.Decimal {
	if p.Precio == nil {
		return decimal.Zero
	}
	return *p.Precio
}

func (p Product) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("%w: id vacío", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Nombre) == "" {
		return fmt.Errorf("%w: nombre vacío (id %s)", ErrInvalidProduct, p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock negativo (id %s)", ErrInvalidProduct, p.ID)
	}
	if p.Precio != nil && p.Precio.IsNegative() {
		return fmt.Errorf("%w: precio negativo (id %s)", ErrInvalidProduct, p.ID)
	}
	return nil
}

// ProductQuery son los filtros que entiende GET /productos.
type ProductQuery struct {
	Categoria string
	Destacado *bool
	Activo    *bool
	Skip      int
	Limit     int
}

// ProductInput es el formulario de alta/edición del panel admin.
// Los punteros nil no se envían en una edición.
type ProductInput struct {
	Nombre      *string
	Descripcion *string
	Precio      *decimal.Decimal
	Categoria   *string
	Stock       *int
	Destacado   *bool
	Activo      *bool
	Image       *Upload
}

// Upload es un archivo de imagen a enviar como multipart.
type Upload struct {
	Filename string
	Content  []byte
}
