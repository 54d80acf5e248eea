package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/domain"
)

const (
	DefaultCartKey = "carrito"
	LegacyCartKey  = "aurum_carrito"

	clearPrompt = "¿Estás seguro de que quieres vaciar el carrito?"
)

// ConfirmFunc adapta una función al paso de confirmación.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// NotifyFunc adapta una función a domain.Notifier.
type NotifyFunc func(n domain.Notice)

func (f NotifyFunc) Notify(n domain.Notice) { f(n) }

type CartOption func(*CartStore)

func WithNotifier(n domain.Notifier) CartOption { return func(s *CartStore) { s.notifier = n } }

func WithConfirmer(c domain.Confirmer) CartOption { return func(s *CartStore) { s.confirmer = c } }

// WithLegacyKey migra el carrito guardado bajo la clave vieja la primera vez que se lee.
func WithLegacyKey(key string) CartOption { return func(s *CartStore) { s.legacyKey = key } }

func WithLogger(l zerolog.Logger) CartOption { return func(s *CartStore) { s.log = l } }

// CartStore es el carrito de una pestaña: estado en memoria + almacenamiento persistente compartido.
// Cada mutación relee el almacenamiento, modifica y vuelve a escribir el carrito completo.
// Entre instancias gana la última escritura.
type CartStore struct {
	kv        domain.KeyValueStore
	key       string
	legacyKey string
	notifier  domain.Notifier
	confirmer domain.Confirmer
	log       zerolog.Logger

	mu    sync.Mutex
	items domain.Cart

	subMu   sync.Mutex
	subs    map[int]func(domain.CartEvent)
	nextSub int
}

func NewCartStore(kv domain.KeyValueStore, key string, opts ...CartOption) *CartStore {
	if strings.TrimSpace(key) == "" {
		key = DefaultCartKey
	}
	s := &CartStore{
		kv:        kv,
		key:       key,
		log:       log.Logger,
		confirmer: ConfirmFunc(func(string) bool { return true }),
		subs:      map[int]func(domain.CartEvent){},
	}
	for _, o := range opts {
		o(s)
	}
	s.items = s.Load(context.Background())
	return s
}

func (s *CartStore) Key() string { return s.key }

// Load lee el carrito persistido. Nunca falla: datos ausentes, ilegibles o corruptos dan un carrito vacío.
func (s *CartStore) Load(ctx context.Context) domain.Cart {
	c, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("leer carrito")
		return domain.Cart{}
	}
	return c
}

// load distingue fallas de lectura (error) de datos corruptos (carrito vacío, sin error).
func (s *CartStore) load(ctx context.Context) (domain.Cart, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	migrate := false
	if !ok && s.legacyKey != "" && s.legacyKey != s.key {
		raw, ok, err = s.kv.Get(ctx, s.legacyKey)
		if err != nil {
			return nil, err
		}
		migrate = ok
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Cart{}, nil
	}
	c, err := decodeCart(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("carrito corrupto, se usa vacío")
		return domain.Cart{}, nil
	}
	if migrate {
		if err := s.write(ctx, c); err == nil {
			_ = s.kv.Remove(ctx, s.legacyKey)
			s.log.Info().Str("from", s.legacyKey).Str("to", s.key).Int("items", len(c)).Msg("carrito migrado")
		}
	}
	return c, nil
}

func decodeCart(raw string) (domain.Cart, error) {
	var items []domain.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
	}
	return sanitize(items), nil
}

// sanitize restablece los invariantes sobre datos que vienen de afuera:
// ids únicos, 1 <= cantidad <= stock.
func sanitize(items []domain.CartLineItem) domain.Cart {
	out := make(domain.Cart, 0, len(items))
	seen := map[domain.ProductID]struct{}{}
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		if it.Cantidad > it.Stock {
			it.Cantidad = it.Stock
		}
		if it.Cantidad <= 0 {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

func (s *CartStore) write(ctx context.Context, c domain.Cart) error {
	if c == nil {
		c = domain.Cart{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(b))
}

// Save persiste el carrito completo y avisa a los suscriptores. Antes de guardar se
// descartan duplicados y cantidades fuera de 1..stock. Si la escritura falla el
// estado en memoria se mantiene igual, pero no sobrevive a una recarga.
func (s *CartStore) Save(ctx context.Context, c domain.Cart) error {
	s.mu.Lock()
	err := s.persist(ctx, sanitize(c.Clone()))
	count := s.items.TotalItems()
	s.mu.Unlock()
	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: count})
	return err
}

// persist requiere s.mu tomado.
func (s *CartStore) persist(ctx context.Context, c domain.Cart) error {
	s.items = c
	if err := s.write(ctx, c); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("guardar carrito")
		return err
	}
	return nil
}

// current relee el almacenamiento; si la lectura falla usa el estado en memoria.
func (s *CartStore) current(ctx context.Context) domain.Cart {
	c, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("leer carrito, se usa estado en memoria")
		return s.items.Clone()
	}
	return c
}

// AddItem agrega cantidad unidades del producto. Falla sin modificar nada si la cantidad
// total superaría el stock del producto.
func (s *CartStore) AddItem(ctx context.Context, p domain.Product, cantidad int) bool {
	if cantidad < 1 || p.ID == "" {
		s.notify(ctx, domain.Notice{Level: domain.NoticeError, Message: "Cantidad inválida"})
		return false
	}

	s.mu.Lock()
	c := s.current(ctx)
	if i := c.IndexOf(p.ID); i >= 0 {
		total := c[i].Cantidad + cantidad
		if total > p.Stock {
			s.mu.Unlock()
			s.notify(ctx, domain.Notice{Level: domain.NoticeError, Message: domain.InsufficientStockMessage(p.Stock)})
			return false
		}
		c[i].Cantidad = total
		c[i].Stock = p.Stock
	} else {
		if cantidad > p.Stock {
			s.mu.Unlock()
			s.notify(ctx, domain.Notice{Level: domain.NoticeError, Message: domain.InsufficientStockMessage(p.Stock)})
			return false
		}
		c = append(c, domain.NewCartLineItem(p, cantidad))
	}
	_ = s.persist(ctx, c)
	count := s.items.TotalItems()
	s.mu.Unlock()

	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: count})
	s.notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: fmt.Sprintf("%s agregado al carrito", p.Nombre)})
	return true
}

// UpdateQuantity fija la cantidad de una línea. cantidad <= 0 equivale a RemoveItem;
// ids inexistentes se ignoran.
func (s *CartStore) UpdateQuantity(ctx context.Context, id domain.ProductID, cantidad int) bool {
	if cantidad <= 0 {
		return s.RemoveItem(ctx, id)
	}

	s.mu.Lock()
	c := s.current(ctx)
	i := c.IndexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if cantidad > c[i].Stock {
		stock := c[i].Stock
		s.mu.Unlock()
		s.notify(ctx, domain.Notice{Level: domain.NoticeError, Message: domain.InsufficientStockMessage(stock)})
		return false
	}
	c[i].Cantidad = cantidad
	_ = s.persist(ctx, c)
	count := s.items.TotalItems()
	s.mu.Unlock()

	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: count})
	return true
}

// RemoveItem devuelve false si el id no estaba en el carrito.
func (s *CartStore) RemoveItem(ctx context.Context, id domain.ProductID) bool {
	s.mu.Lock()
	c := s.current(ctx)
	it, ok := c.Find(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	_ = s.persist(ctx, c.Remove(id))
	count := s.items.TotalItems()
	s.mu.Unlock()

	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: count})
	s.notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: fmt.Sprintf("%s eliminado del carrito", it.Nombre)})
	return true
}

// Clear vacía el carrito si el usuario lo confirma. confirm nil usa el confirmador del store.
func (s *CartStore) Clear(ctx context.Context, confirm domain.Confirmer) bool {
	if confirm == nil {
		confirm = s.confirmer
	}
	s.mu.Lock()
	c := s.current(ctx)
	if c.IsEmpty() {
		s.items = c
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	if !confirm.Confirm(clearPrompt) {
		return false
	}

	s.mu.Lock()
	_ = s.persist(ctx, domain.Cart{})
	s.mu.Unlock()

	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: 0})
	s.notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: "Carrito vaciado"})
	return true
}

// Reset es el vaciado administrativo: sin confirmación ni aviso al usuario.
func (s *CartStore) Reset(ctx context.Context) {
	s.mu.Lock()
	_ = s.persist(ctx, domain.Cart{})
	s.mu.Unlock()
	s.emit(domain.CartEvent{Kind: domain.CartChanged, Count: 0})
}

func (s *CartStore) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.TotalItems()
}

func (s *CartStore) Items() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Badge es el texto del contador del navbar ("99+" arriba de 99).
func (s *CartStore) Badge() string { return domain.BadgeText(s.TotalItemCount()) }

// Subscribe registra fn para eventos de cambio y avisos. Los eventos se entregan
// en la goroutine que hizo la mutación, sin locks del store tomados.
func (s *CartStore) Subscribe(fn func(domain.CartEvent)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *CartStore) emit(ev domain.CartEvent) {
	s.subMu.Lock()
	fns := make([]func(domain.CartEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type noticeCtxKey struct{}

// NotifyContext devuelve un ctx con el que los avisos de una operación también llegan a n.
// El server HTTP lo usa para devolver el mensaje en la respuesta del request.
func NotifyContext(ctx context.Context, n domain.Notifier) context.Context {
	return context.WithValue(ctx, noticeCtxKey{}, n)
}

func (s *CartStore) notify(ctx context.Context, n domain.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
	if cn, ok := ctx.Value(noticeCtxKey{}).(domain.Notifier); ok && cn != nil {
		cn.Notify(n)
	}
	s.emit(domain.CartEvent{Kind: domain.CartNotice, Count: s.TotalItemCount(), Notice: &n})
}

// Sync escucha cambios del carrito hechos por otras instancias (otra pestaña, otro proceso)
// y recarga el estado en memoria. No resuelve conflictos.
func (s *CartStore) Sync(ctx context.Context, w domain.StorageWatcher) (stop func(), err error) {
	return w.Watch(ctx, func(ev domain.StorageEvent) {
		if ev.Key != s.key {
			return
		}
		s.Refresh(ctx)
	})
}

// Refresh relee el carrito persistido y avisa con CartSynced si cambió. Lo usa
// quien ya escucha el backend por su cuenta (el registro de carritos del server).
func (s *CartStore) Refresh(ctx context.Context) {
	s.mu.Lock()
	c, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("key", s.key).Msg("sincronizar carrito")
		return
	}
	if sameCart(s.items, c) {
		s.mu.Unlock()
		return
	}
	s.items = c
	count := c.TotalItems()
	s.mu.Unlock()
	s.emit(domain.CartEvent{Kind: domain.CartSynced, Count: count})
}

func sameCart(a, b domain.Cart) bool {
	if len(a) != len(b) {
		return false
	}
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ja) == string(jb)
}
