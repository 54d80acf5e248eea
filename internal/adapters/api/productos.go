package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phenrril/aurum/internal/domain"
)

// Products habla con /productos.
type Products struct {
	c *Client
}

var _ domain.ProductAPI = (*Products)(nil)

func NewProducts(c *Client) *Products { return &Products{c: c} }

func (p *Products) List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	v := url.Values{}
	if q.Categoria != "" {
		v.Set("categoria", q.Categoria)
	}
	if q.Destacado != nil {
		v.Set("destacado", strconv.FormatBool(*q.Destacado))
	}
	if q.Activo != nil {
		v.Set("activo", strconv.FormatBool(*q.Activo))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	var out []domain.Product
	if err := p.c.doJSON(ctx, http.MethodGet, "productos", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get trata cualquier status no-2xx como producto inexistente, salvo el 401.
func (p *Products) Get(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	var out domain.Product
	err := p.c.doJSON(ctx, http.MethodGet, "productos/"+url.PathEscape(string(id)), nil, nil, &out)
	if err != nil {
		var ne *domain.NetworkError
		if errors.As(err, &ne) && ne.Status > 0 && ne.Err == nil {
			ne.Err = domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (p *Products) ListByCategoria(ctx context.Context, categoria string) ([]domain.Product, error) {
	var out []domain.Product
	if err := p.c.doJSON(ctx, http.MethodGet, "productos/categoria/"+url.PathEscape(categoria), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Products) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := p.c.doJSON(ctx, http.MethodGet, "productos/categorias/list", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create manda el alta como multipart. Stock, destacado y activo van siempre con sus defaults.
func (p *Products) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	f := newForm()
	f.field("nombre", deref(in.Nombre))
	f.field("categoria", deref(in.Categoria))
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	f.field("stock", strconv.Itoa(stock))
	f.field("destacado", strconv.FormatBool(in.Destacado != nil && *in.Destacado))
	f.field("activo", strconv.FormatBool(in.Activo == nil || *in.Activo))
	if in.Descripcion != nil && *in.Descripcion != "" {
		f.field("descripcion", *in.Descripcion)
	}
	if in.Precio != nil {
		f.field("precio", in.Precio.String())
	}
	f.file("imagen", in.Image)

	var out domain.Product
	if err := p.c.doForm(ctx, http.MethodPost, "productos", f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update solo manda los campos presentes.
func (p *Products) Update(ctx context.Context, id domain.ProductID, in domain.ProductInput) (*domain.Product, error) {
	f := newForm()
	if in.Nombre != nil && *in.Nombre != "" {
		f.field("nombre", *in.Nombre)
	}
	if in.Descripcion != nil {
		f.field("descripcion", *in.Descripcion)
	}
	if in.Precio != nil {
		f.field("precio", in.Precio.String())
	}
	if in.Categoria != nil && *in.Categoria != "" {
		f.field("categoria", *in.Categoria)
	}
	if in.Stock != nil {
		f.field("stock", strconv.Itoa(*in.Stock))
	}
	if in.Destacado != nil {
		f.field("destacado", strconv.FormatBool(*in.Destacado))
	}
	if in.Activo != nil {
		f.field("activo", strconv.FormatBool(*in.Activo))
	}
	f.file("imagen", in.Image)

	var out domain.Product
	if err := p.c.doForm(ctx, http.MethodPut, "productos/"+url.PathEscape(string(id)), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Products) Delete(ctx context.Context, id domain.ProductID) error {
	return p.c.doJSON(ctx, http.MethodDelete, "productos/"+url.PathEscape(string(id)), nil, nil, nil)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
