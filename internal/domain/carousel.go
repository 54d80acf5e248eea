package domain

import "time"

// CarouselItem es un slide del carrusel de la home.
type CarouselItem struct {
	ID          string    `json:"id"`
	Titulo      string    `json:"titulo,omitempty"`
	Descripcion string    `json:"descripcion,omitempty"`
	Orden       int       `json:"orden"`
	Activo      bool      `json:"activo"`
	ImagenURL   string    `json:"imagen_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type CarouselInput struct {
	Titulo      *string
	Descripcion *string
	Orden       *int
	Activo      *bool
	Image       *Upload
}
