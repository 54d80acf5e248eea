package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/domain"
)

// AdminUC agrupa las operaciones del panel admin. Todas exigen un usuario con rol admin.
type AdminUC struct {
	Session  *SessionUC
	Products domain.ProductAPI
	Carousel domain.CarouselAPI
	Exporter domain.CatalogExporter
}

func (uc *AdminUC) authorize(ctx context.Context) error {
	if uc.Session == nil || !uc.Session.IsAdmin(ctx) {
		return domain.ErrForbidden
	}
	return nil
}

func (uc *AdminUC) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	if in.Nombre == nil || strings.TrimSpace(*in.Nombre) == "" {
		return nil, fmt.Errorf("%w: nombre vacío", domain.ErrInvalidProduct)
	}
	if in.Categoria == nil || strings.TrimSpace(*in.Categoria) == "" {
		return nil, fmt.Errorf("%w: categoría vacía", domain.ErrInvalidProduct)
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	p, err := uc.Products.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Info().Str("id", string(p.ID)).Str("nombre", p.Nombre).Msg("producto creado")
	return p, nil
}

func (uc *AdminUC) UpdateProduct(ctx context.Context, id domain.ProductID, in domain.ProductInput) (*domain.Product, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil, errors.New("id vacío")
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	return uc.Products.Update(ctx, id, in)
}

func (uc *AdminUC) DeleteProduct(ctx context.Context, id domain.ProductID) error {
	if err := uc.authorize(ctx); err != nil {
		return err
	}
	if err := uc.Products.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("id", string(id)).Msg("producto eliminado")
	return nil
}

func checkInput(in domain.ProductInput) error {
	if in.Stock != nil && *in.Stock < 0 {
		return fmt.Errorf("%w: stock negativo", domain.ErrInvalidProduct)
	}
	if in.Precio != nil && in.Precio.IsNegative() {
		return fmt.Errorf("%w: precio negativo", domain.ErrInvalidProduct)
	}
	return nil
}

func (uc *AdminUC) ListCarousel(ctx context.Context, activo *bool) ([]domain.CarouselItem, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	return uc.Carousel.List(ctx, activo)
}

func (uc *AdminUC) GetCarousel(ctx context.Context, id string) (*domain.CarouselItem, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	return uc.Carousel.Get(ctx, id)
}

func (uc *AdminUC) CreateCarousel(ctx context.Context, in domain.CarouselInput) (*domain.CarouselItem, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	if in.Image == nil || len(in.Image.Content) == 0 {
		return nil, errors.New("la imagen es requerida")
	}
	return uc.Carousel.Create(ctx, in)
}

func (uc *AdminUC) UpdateCarousel(ctx context.Context, id string, in domain.CarouselInput) (*domain.CarouselItem, error) {
	if err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	return uc.Carousel.Update(ctx, id, in)
}

func (uc *AdminUC) DeleteCarousel(ctx context.Context, id string) error {
	if err := uc.authorize(ctx); err != nil {
		return err
	}
	return uc.Carousel.Delete(ctx, id)
}

// ExportCatalog vuelca todo el catálogo (activos e inactivos) en una planilla.
func (uc *AdminUC) ExportCatalog(ctx context.Context, w io.Writer) (int, error) {
	if err := uc.authorize(ctx); err != nil {
		return 0, err
	}
	list, err := uc.Products.List(ctx, domain.ProductQuery{Limit: 1000})
	if err != nil {
		return 0, fmt.Errorf("listar productos: %w", err)
	}
	list = Sort(list, SortNameAsc)
	if err := uc.Exporter.Export(w, list); err != nil {
		return 0, fmt.Errorf("exportar: %w", err)
	}
	return len(list), nil
}
