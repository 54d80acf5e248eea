package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/aurum/internal/adapters/storage/memory"
	"github.com/phenrril/aurum/internal/domain"
	"github.com/phenrril/aurum/internal/usecase"
)

type stubProducts struct {
	domain.ProductAPI
	items map[domain.ProductID]domain.Product
	order []domain.ProductID
	err   error
	lastQ domain.ProductQuery
}

func newStub(products ...domain.Product) *stubProducts {
	s := &stubProducts{items: map[domain.ProductID]domain.Product{}}
	for _, p := range products {
		s.items[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *stubProducts) List(_ context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	s.lastQ = q
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *stubProducts) Get(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.items[id]
	if !ok {
		return nil, &domain.NetworkError{Op: "GET /productos/" + string(id), Status: 404, Err: domain.ErrNotFound}
	}
	return &p, nil
}

func (s *stubProducts) Categories(context.Context) ([]string, error) {
	return []string{"anillos", "aros"}, s.err
}

func item(id string, stock int) domain.Product {
	precio := decimal.NewFromInt(1000)
	return domain.Product{ID: domain.ProductID(id), Nombre: "Anillo " + id, Categoria: "anillos", Precio: &precio, Stock: stock, Activo: true}
}

type harness struct {
	h        http.Handler
	products *stubProducts
	carts    *CartRegistry
}

func newHarness(t *testing.T, products ...domain.Product) *harness {
	t.Helper()
	return newHarnessKV(t, memory.New(), products...)
}

func newHarnessKV(t *testing.T, kv domain.KeyValueStore, products ...domain.Product) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	stub := newStub(products...)
	carts := NewCartRegistry(ctx, kv, usecase.DefaultCartKey, usecase.LegacyCartKey)
	h := New(&usecase.CatalogUC{Products: stub}, carts, Options{})
	return &harness{h: h, products: stub, carts: carts}
}

type cartResp struct {
	Message string           `json:"message"`
	Error   string           `json:"error"`
	Items   []map[string]any `json:"items"`
	Count   int              `json:"count"`
	Badge   string           `json:"badge"`
}

func (hs *harness) do(t *testing.T, method, path, body, sid string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResp {
	t.Helper()
	var c cartResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	return c
}

func sidFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c.Value
		}
	}
	t.Fatal("sin cookie de sesión")
	return ""
}

func TestHealth(t *testing.T) {
	hs := newHarness(t)
	rec := hs.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestEmptyCartAssignsSession(t *testing.T) {
	hs := newHarness(t)
	rec := hs.do(t, http.MethodGet, "/api/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sidFrom(t, rec)
	assert.NotEmpty(t, sid)

	c := decodeCart(t, rec)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.Count)
	assert.Equal(t, "", c.Badge)

	// con cookie válida no se reasigna
	rec = hs.do(t, http.MethodGet, "/api/cart", "", sid)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAddItemFlow(t *testing.T) {
	hs := newHarness(t, item("1", 5))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))

	rec := hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":2}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, "Anillo 1 agregado al carrito", c.Message)

	rec = hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":4}`, sid)
	require.Equal(t, http.StatusConflict, rec.Code)
	c = decodeCart(t, rec)
	assert.Equal(t, "Solo hay 5 unidades disponibles", c.Error)
	assert.Equal(t, 2, c.Count)

	rec = hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1"}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeCart(t, rec).Count)
}

func TestAddItemErrors(t *testing.T) {
	hs := newHarness(t, item("1", 5))

	assert.Equal(t, http.StatusBadRequest, hs.do(t, http.MethodPost, "/api/cart/items", `{"cantidad":1}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":0}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, hs.do(t, http.MethodPost, "/api/cart/items", `nada`, "").Code)
	assert.Equal(t, http.StatusNotFound, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"99"}`, "").Code)
}

func TestUpdateAndRemove(t *testing.T) {
	hs := newHarness(t, item("1", 5), item("2", 1))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))
	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":1}`, sid).Code)
	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"2","cantidad":1}`, sid).Code)

	rec := hs.do(t, http.MethodPut, "/api/cart/items/1", `{"cantidad":5}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decodeCart(t, rec).Count)

	rec = hs.do(t, http.MethodPut, "/api/cart/items/1", `{"cantidad":6}`, sid)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Solo hay 5 unidades disponibles", decodeCart(t, rec).Error)

	assert.Equal(t, http.StatusNotFound, hs.do(t, http.MethodPut, "/api/cart/items/77", `{"cantidad":1}`, sid).Code)

	// sin cantidad no se toca la línea
	rec = hs.do(t, http.MethodPut, "/api/cart/items/2", `{}`, sid)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 6, decodeCart(t, hs.do(t, http.MethodGet, "/api/cart", "", sid)).Count)

	// cantidad 0 elimina la línea
	rec = hs.do(t, http.MethodPut, "/api/cart/items/2", `{"cantidad":0}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, "Anillo 2 eliminado del carrito", c.Message)

	rec = hs.do(t, http.MethodDelete, "/api/cart/items/1", "", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeCart(t, rec).Count)
	assert.Equal(t, http.StatusNotFound, hs.do(t, http.MethodDelete, "/api/cart/items/1", "", sid).Code)
}

func TestClearNeedsConfirmation(t *testing.T) {
	hs := newHarness(t, item("1", 5))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))

	// carrito vacío: no hay nada que confirmar
	assert.Equal(t, http.StatusOK, hs.do(t, http.MethodDelete, "/api/cart", "", sid).Code)

	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":3}`, sid).Code)

	rec := hs.do(t, http.MethodDelete, "/api/cart", "", sid)
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, 3, decodeCart(t, rec).Count)

	rec = hs.do(t, http.MethodDelete, "/api/cart", "", sid, "X-Confirm", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Equal(t, 0, c.Count)
	assert.Equal(t, "Carrito vaciado", c.Message)
}

func TestBadge(t *testing.T) {
	hs := newHarness(t, item("1", 200))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))
	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":150}`, sid).Code)

	rec := hs.do(t, http.MethodGet, "/api/cart/badge", "", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	var b struct {
		Count int    `json:"count"`
		Badge string `json:"badge"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	assert.Equal(t, 150, b.Count)
	assert.Equal(t, "99+", b.Badge)
}

func TestCartsAreIsolatedPerVisitor(t *testing.T) {
	hs := newHarness(t, item("1", 5))
	a := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))
	b := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))
	require.NotEqual(t, a, b)

	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":2}`, a).Code)
	assert.Equal(t, 0, decodeCart(t, hs.do(t, http.MethodGet, "/api/cart", "", b)).Count)
	assert.Equal(t, 2, decodeCart(t, hs.do(t, http.MethodGet, "/api/cart", "", a)).Count)
	assert.Equal(t, 2, hs.carts.Len())
}

func TestCatalogPagination(t *testing.T) {
	var ps []domain.Product
	for i := 1; i <= 13; i++ {
		p := item(fmt.Sprint(i), 1)
		p.Nombre = fmt.Sprintf("Anillo %02d", i)
		ps = append(ps, p)
	}
	hs := newHarness(t, ps...)

	rec := hs.do(t, http.MethodGet, "/api/catalog/products?categoria=anillos&sort=nombre-desc&page=2&page_size=12", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page usecase.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 13, page.RangeStart)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Anillo 01", page.Items[0].Nombre)

	assert.Equal(t, "anillos", hs.products.lastQ.Categoria)
	require.NotNil(t, hs.products.lastQ.Activo)
	assert.True(t, *hs.products.lastQ.Activo)
	assert.Nil(t, hs.products.lastQ.Destacado)
}

func TestCatalogErrors(t *testing.T) {
	hs := newHarness(t, item("1", 1))

	rec := hs.do(t, http.MethodGet, "/api/catalog/products/nada", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = hs.do(t, http.MethodGet, "/api/catalog/products/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nombre":"Anillo 1"`)

	hs.products.err = &domain.NetworkError{Op: "GET /productos", Message: "error de conexión"}
	rec = hs.do(t, http.MethodGet, "/api/catalog/products", "", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["reload"])
}

func TestCategories(t *testing.T) {
	hs := newHarness(t)
	rec := hs.do(t, http.MethodGet, "/api/catalog/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["anillos","aros"]`, rec.Body.String())
}

func TestSweepReleasesIdleCarts(t *testing.T) {
	hs := newHarness(t, item("1", 5))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))
	require.Equal(t, http.StatusOK, hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":2}`, sid).Code)

	assert.Equal(t, 0, hs.carts.Sweep(time.Hour))
	assert.Equal(t, 1, hs.carts.Sweep(0))
	assert.Equal(t, 0, hs.carts.Len())

	// lo persistido sobrevive
	assert.Equal(t, 2, decodeCart(t, hs.do(t, http.MethodGet, "/api/cart", "", sid)).Count)
}

type readOnlyKV struct {
	domain.KeyValueStore
}

func (readOnlyKV) Set(context.Context, string, string) error { return errors.New("quota exceeded") }

func TestMutationResponseKeepsStateWhenWriteFails(t *testing.T) {
	hs := newHarnessKV(t, readOnlyKV{memory.New()}, item("1", 5))
	sid := sidFrom(t, hs.do(t, http.MethodGet, "/api/cart", "", ""))

	rec := hs.do(t, http.MethodPost, "/api/cart/items", `{"id":"1","cantidad":2}`, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeCart(t, rec)
	assert.Equal(t, 2, c.Count)
	assert.Len(t, c.Items, 1)
	assert.Empty(t, c.Error)
}
