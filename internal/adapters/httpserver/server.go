package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/aurum/internal/domain"
	"github.com/phenrril/aurum/internal/usecase"
)

const SessionCookie = "aurum_sid"

type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
}

type Server struct {
	router  chi.Router
	catalog *usecase.CatalogUC
	carts   *CartRegistry
	secure  bool
}

func New(catalog *usecase.CatalogUC, carts *CartRegistry, opts Options) http.Handler {
	s := &Server{router: chi.NewRouter(), catalog: catalog, carts: carts, secure: opts.SecureCookies}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(Recovery)
	s.router.Use(Logging)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Confirm"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.routes()
	return s.router
}

func (s *Server) routes() {
	s.router.Get("/health", s.health)

	s.router.Route("/api/catalog", func(r chi.Router) {
		r.Get("/products", s.apiProducts)
		r.Get("/products/{id}", s.apiProductByID)
		r.Get("/categories", s.apiCategories)
	})

	s.router.Route("/api/cart", func(r chi.Router) {
		r.Get("/", s.apiCart)
		r.Delete("/", s.apiCartClear)
		r.Get("/badge", s.apiCartBadge)
		r.Post("/items", s.apiCartAdd)
		r.Put("/items/{id}", s.apiCartUpdate)
		r.Delete("/items/{id}", s.apiCartRemove)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "carts": s.carts.Len()})
}

// ---- catálogo ----

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	active := true
	bq := usecase.BrowseQuery{
		Filter:   domain.ProductQuery{Categoria: strings.TrimSpace(q.Get("categoria")), Activo: &active},
		Text:     q.Get("q"),
		Sort:     usecase.SortKey(q.Get("sort")),
		Page:     atoi(q.Get("page")),
		PageSize: atoi(q.Get("page_size")),
	}
	if v, err := strconv.ParseBool(q.Get("destacado")); err == nil {
		bq.Filter.Destacado = &v
	}
	page, err := s.catalog.Browse(r.Context(), bq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.FetchByID(r.Context(), domain.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// fail traduce errores del catálogo. Los errores de red se muestran con opción de recargar.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ne *domain.NetworkError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidProduct):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Producto no encontrado"})
	case errors.Is(err, domain.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Sesión expirada. Por favor inicia sesión nuevamente."})
	case errors.As(err, &ne):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("catalog")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "No se pudieron cargar los productos", "detail": ne.Error(), "reload": true})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("catalog")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Error inesperado", "reload": true})
	}
}

// ---- carrito ----

type cartView struct {
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Items   domain.Cart     `json:"items"`
	Count   int             `json:"count"`
	Badge   string          `json:"badge"`
	Total   decimal.Decimal `json:"total"`
}

func viewOf(c domain.Cart) cartView {
	if c == nil {
		c = domain.Cart{}
	}
	n := c.TotalItems()
	return cartView{Items: c, Count: n, Badge: domain.BadgeText(n), Total: c.Total()}
}

// noticeCollector junta los avisos del carrito emitidos durante un request.
type noticeCollector struct {
	notices []domain.Notice
}

func (c *noticeCollector) Notify(n domain.Notice) { c.notices = append(c.notices, n) }

func (c *noticeCollector) last() string {
	if len(c.notices) == 0 {
		return ""
	}
	return c.notices[len(c.notices)-1].Message
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	cart := s.cartFor(w, r)
	cart.Refresh(r.Context())
	writeJSON(w, http.StatusOK, viewOf(cart.Items()))
}

func (s *Server) apiCartBadge(w http.ResponseWriter, r *http.Request) {
	cart := s.cartFor(w, r)
	cart.Refresh(r.Context())
	n := cart.TotalItemCount()
	writeJSON(w, http.StatusOK, map[string]any{"count": n, "badge": domain.BadgeText(n)})
}

type addRequest struct {
	ID       domain.ProductID `json:"id"`
	Cantidad *int             `json:"cantidad"`
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id requerido"})
		return
	}
	qty := 1
	if req.Cantidad != nil {
		qty = *req.Cantidad
	}
	if qty < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Cantidad inválida"})
		return
	}
	p, err := s.catalog.FetchByID(r.Context(), req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cart := s.cartFor(w, r)
	nc := &noticeCollector{}
	ctx := usecase.NotifyContext(r.Context(), nc)
	ok := cart.AddItem(ctx, *p, qty)
	v := viewOf(cart.Items())
	if !ok {
		v.Error = nc.last()
		writeJSON(w, http.StatusConflict, v)
		return
	}
	v.Message = nc.last()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) apiCartUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cantidad *int `json:"cantidad"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cantidad == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "cantidad requerida"})
		return
	}
	id := domain.ProductID(chi.URLParam(r, "id"))
	cart := s.cartFor(w, r)
	nc := &noticeCollector{}
	ok := cart.UpdateQuantity(usecase.NotifyContext(r.Context(), nc), id, *req.Cantidad)
	v := viewOf(cart.Items())
	switch {
	case ok:
		v.Message = nc.last()
		writeJSON(w, http.StatusOK, v)
	case len(nc.notices) > 0:
		v.Error = nc.last()
		writeJSON(w, http.StatusConflict, v)
	default:
		v.Error = "El producto no está en el carrito"
		writeJSON(w, http.StatusNotFound, v)
	}
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	cart := s.cartFor(w, r)
	nc := &noticeCollector{}
	ok := cart.RemoveItem(usecase.NotifyContext(r.Context(), nc), domain.ProductID(chi.URLParam(r, "id")))
	v := viewOf(cart.Items())
	if !ok {
		v.Error = "El producto no está en el carrito"
		writeJSON(w, http.StatusNotFound, v)
		return
	}
	v.Message = nc.last()
	writeJSON(w, http.StatusOK, v)
}

// apiCartClear pide confirmación explícita con el header X-Confirm: true.
func (s *Server) apiCartClear(w http.ResponseWriter, r *http.Request) {
	confirmed := strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Confirm")), "true")
	cart := s.cartFor(w, r)
	nc := &noticeCollector{}
	ok := cart.Clear(usecase.NotifyContext(r.Context(), nc), usecase.ConfirmFunc(func(string) bool { return confirmed }))
	v := viewOf(cart.Items())
	if !ok && !confirmed && !v.Items.IsEmpty() {
		v.Error = "Confirmación requerida"
		writeJSON(w, http.StatusPreconditionRequired, v)
		return
	}
	v.Message = nc.last()
	writeJSON(w, http.StatusOK, v)
}

// cartFor identifica al visitante por cookie; sin cookie válida se le asigna una nueva.
func (s *Server) cartFor(w http.ResponseWriter, r *http.Request) *usecase.CartStore {
	sid := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			sid = id.String()
		}
	}
	if sid == "" {
		sid = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			MaxAge:   int((30 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s.carts.For(sid)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
