package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/phenrril/aurum/internal/domain"
)

type SortKey string

const (
	SortNameAsc   SortKey = "nombre-asc"
	SortNameDesc  SortKey = "nombre-desc"
	SortPriceAsc  SortKey = "precio-asc"
	SortPriceDesc SortKey = "precio-desc"
	SortFeatured  SortKey = "destacados"
	SortStockDesc SortKey = "stock-desc"
	// cualquier otro valor: más recientes primero
	SortNewest SortKey = "recientes"
)

const DefaultPageSize = 12

type CatalogUC struct {
	Products domain.ProductAPI
}

// FetchAll trae el listado del backend. Los productos que no pasan la validación se descartan.
func (uc *CatalogUC) FetchAll(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	list, err := uc.Products.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return validProducts(list), nil
}

func (uc *CatalogUC) FetchByID(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, errors.New("id vacío")
	}
	p, err := uc.Products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *CatalogUC) FetchByCategoria(ctx context.Context, categoria string) ([]domain.Product, error) {
	c := strings.TrimSpace(categoria)
	if c == "" {
		return nil, errors.New("categoría vacía")
	}
	list, err := uc.Products.ListByCategoria(ctx, c)
	if err != nil {
		return nil, err
	}
	return validProducts(list), nil
}

func (uc *CatalogUC) Categories(ctx context.Context) ([]string, error) {
	return uc.Products.Categories(ctx)
}

// Featured devuelve los destacados activos para la home.
func (uc *CatalogUC) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	yes := true
	return uc.FetchAll(ctx, domain.ProductQuery{Destacado: &yes, Activo: &yes, Limit: limit})
}

// BrowseQuery es lo que pide una página de listado: filtros del backend + búsqueda, orden y página locales.
type BrowseQuery struct {
	Filter   domain.ProductQuery
	Text     string
	Sort     SortKey
	Page     int
	PageSize int
}

func (uc *CatalogUC) Browse(ctx context.Context, q BrowseQuery) (Page, error) {
	list, err := uc.FetchAll(ctx, q.Filter)
	if err != nil {
		return Page{}, fmt.Errorf("cargar productos: %w", err)
	}
	list = Search(list, q.Text)
	list = Sort(list, q.Sort)
	return Paginate(list, q.Page, q.PageSize), nil
}

func validProducts(list []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if err := p.Validate(); err != nil {
			log.Warn().Err(err).Str("id", string(p.ID)).Msg("producto descartado")
			continue
		}
		out = append(out, p)
	}
	return out
}

// Search filtra por nombre o descripción; textos de menos de 2 caracteres no filtran.
func Search(products []domain.Product, text string) []domain.Product {
	t := strings.ToLower(strings.TrimSpace(text))
	if len([]rune(t)) < 2 {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Nombre), t) || strings.Contains(strings.ToLower(p.Descripcion), t) {
			out = append(out, p)
		}
	}
	return out
}

// Sort devuelve una copia ordenada; el slice original no se modifica.
func Sort(products []domain.Product, key SortKey) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)

	col := collate.New(language.Spanish)
	byName := func(a, b domain.Product) int { return col.CompareString(a.Nombre, b.Nombre) }

	var less func(a, b domain.Product) bool
	switch key {
	case SortNameAsc:
		less = func(a, b domain.Product) bool { return byName(a, b) < 0 }
	case SortNameDesc:
		less = func(a, b domain.Product) bool { return byName(a, b) > 0 }
	case SortPriceAsc:
		less = func(a, b domain.Product) bool { return a.PriceOrZero().LessThan(b.PriceOrZero()) }
	case SortPriceDesc:
		less = func(a, b domain.Product) bool { return a.PriceOrZero().GreaterThan(b.PriceOrZero()) }
	case SortFeatured:
		less = func(a, b domain.Product) bool {
			if a.Destacado != b.Destacado {
				return a.Destacado
			}
			return byName(a, b) < 0
		}
	case SortStockDesc:
		less = func(a, b domain.Product) bool { return a.Stock > b.Stock }
	default:
		less = func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
	RangeStart int              `json:"range_start"`
	RangeEnd   int              `json:"range_end"`
}

// Paginate corta una página; page se acota a [1, TotalPages]. RangeStart es 1-based.
func Paginate(products []domain.Product, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(products)
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	res := Page{Page: page, PageSize: pageSize, TotalPages: totalPages, Total: total, Items: []domain.Product{}}
	if total == 0 {
		return res
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	res.Items = products[start:end]
	res.RangeStart = start + 1
	res.RangeEnd = end
	return res
}
