package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phenrril/aurum/internal/domain"
)

type Carousel struct {
	c *Client
}

var _ domain.CarouselAPI = (*Carousel)(nil)

func NewCarousel(c *Client) *Carousel { return &Carousel{c: c} }

func (a *Carousel) List(ctx context.Context, activo *bool) ([]domain.CarouselItem, error) {
	v := url.Values{}
	if activo != nil {
		v.Set("activo", strconv.FormatBool(*activo))
	}
	var out []domain.CarouselItem
	if err := a.c.doJSON(ctx, http.MethodGet, "carrusel", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Carousel) Get(ctx context.Context, id string) (*domain.CarouselItem, error) {
	var out domain.CarouselItem
	if err := a.c.doJSON(ctx, http.MethodGet, "carrusel/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Carousel) Create(ctx context.Context, in domain.CarouselInput) (*domain.CarouselItem, error) {
	if in.Image == nil {
		return nil, errors.New("la imagen es requerida")
	}
	f := newForm()
	f.file("imagen", in.Image)
	orden := 0
	if in.Orden != nil {
		orden = *in.Orden
	}
	f.field("orden", strconv.Itoa(orden))
	f.field("activo", strconv.FormatBool(in.Activo == nil || *in.Activo))
	if in.Titulo != nil && *in.Titulo != "" {
		f.field("titulo", *in.Titulo)
	}
	if in.Descripcion != nil && *in.Descripcion != "" {
		f.field("descripcion", *in.Descripcion)
	}

	var out domain.CarouselItem
	if err := a.c.doForm(ctx, http.MethodPost, "carrusel", f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Carousel) Update(ctx context.Context, id string, in domain.CarouselInput) (*domain.CarouselItem, error) {
	f := newForm()
	if in.Titulo != nil {
		f.field("titulo", *in.Titulo)
	}
	if in.Descripcion != nil {
		f.field("descripcion", *in.Descripcion)
	}
	if in.Orden != nil {
		f.field("orden", strconv.Itoa(*in.Orden))
	}
	if in.Activo != nil {
		f.field("activo", strconv.FormatBool(*in.Activo))
	}
	f.file("imagen", in.Image)

	var out domain.CarouselItem
	if err := a.c.doForm(ctx, http.MethodPut, "carrusel/"+url.PathEscape(id), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Carousel) Delete(ctx context.Context, id string) error {
	return a.c.doJSON(ctx, http.MethodDelete, "carrusel/"+url.PathEscape(id), nil, nil, nil)
}
