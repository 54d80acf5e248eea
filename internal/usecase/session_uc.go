package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/domain"
)

const (
	TokenKey = "token"
	UserKey  = "user"

	minPasswordLen = 6
)

// SessionUC guarda el token y el usuario logueado en el mismo almacenamiento que el carrito.
// Auth se puede asignar después de construir, porque el cliente HTTP necesita Token y Expire.
type SessionUC struct {
	KV   domain.KeyValueStore
	Auth domain.AuthAPI

	mu sync.Mutex
}

func NewSessionUC(kv domain.KeyValueStore, auth domain.AuthAPI) *SessionUC {
	return &SessionUC{KV: kv, Auth: auth}
}

func (uc *SessionUC) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email y contraseña requeridos")
	}
	res, err := uc.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := uc.store(ctx, res); err != nil {
		return nil, err
	}
	log.Info().Str("user", res.User.Email).Msg("login ok")
	return &res.User, nil
}

func (uc *SessionUC) Register(ctx context.Context, email, nombre, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	nombre = strings.TrimSpace(nombre)
	if email == "" || nombre == "" {
		return nil, errors.New("email y nombre requeridos")
	}
	if len(password) < minPasswordLen {
		return nil, errors.New("la contraseña debe tener al menos 6 caracteres")
	}
	res, err := uc.Auth.Register(ctx, email, nombre, password)
	if err != nil {
		return nil, err
	}
	if err := uc.store(ctx, res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Logout avisa al backend si hay token, pero la sesión local se borra igual.
func (uc *SessionUC) Logout(ctx context.Context) error {
	if uc.Auth != nil && uc.Token() != "" {
		if err := uc.Auth.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("logout backend")
		}
	}
	return uc.clear(ctx)
}

// Profile consulta /auth/me y refresca el usuario guardado.
func (uc *SessionUC) Profile(ctx context.Context) (*domain.User, error) {
	u, err := uc.Auth.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := uc.saveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *SessionUC) UpdateProfile(ctx context.Context, nombre string) error {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return errors.New("nombre vacío")
	}
	if err := uc.Auth.UpdateProfile(ctx, nombre); err != nil {
		return err
	}
	u := uc.CurrentUser(ctx)
	if u == nil {
		return nil
	}
	u.Nombre = nombre
	return uc.saveUser(ctx, u)
}

func (uc *SessionUC) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" {
		return errors.New("contraseña actual requerida")
	}
	if len(next) < minPasswordLen {
		return errors.New("la contraseña debe tener al menos 6 caracteres")
	}
	return uc.Auth.ChangePassword(ctx, current, next)
}

// CurrentUser devuelve el usuario guardado o nil. Un JSON roto cuenta como sin sesión.
func (uc *SessionUC) CurrentUser(ctx context.Context) *domain.User {
	raw, ok, err := uc.KV.Get(ctx, UserKey)
	if err != nil || !ok || raw == "" {
		return nil
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Warn().Err(err).Msg("usuario guardado ilegible")
		return nil
	}
	return &u
}

func (uc *SessionUC) IsAdmin(ctx context.Context) bool {
	return uc.CurrentUser(ctx).IsAdmin()
}

// Token lo usa el transport del cliente API en cada request.
func (uc *SessionUC) Token() string {
	v, ok, err := uc.KV.Get(context.Background(), TokenKey)
	if err != nil || !ok {
		return ""
	}
	return v
}

// Expire es el hook de 401: limpia la sesión y deja al usuario para ir a login.
func (uc *SessionUC) Expire() {
	if err := uc.clear(context.Background()); err != nil {
		log.Error().Err(err).Msg("limpiar sesión expirada")
	}
	log.Info().Str("redirect", "/login").Msg("sesión expirada")
}

func (uc *SessionUC) store(ctx context.Context, res *domain.AuthResult) error {
	if res == nil || res.AccessToken == "" {
		return errors.New("respuesta de login sin token")
	}
	uc.mu.Lock()
	err := uc.KV.Set(ctx, TokenKey, res.AccessToken)
	uc.mu.Unlock()
	if err != nil {
		return err
	}
	return uc.saveUser(ctx, &res.User)
}

func (uc *SessionUC) saveUser(ctx context.Context, u *domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.KV.Set(ctx, UserKey, string(b))
}

func (uc *SessionUC) clear(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return errors.Join(uc.KV.Remove(ctx, TokenKey), uc.KV.Remove(ctx, UserKey))
}
