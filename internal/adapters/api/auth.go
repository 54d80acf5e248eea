package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/phenrril/aurum/internal/domain"
)

type Auth struct {
	c *Client
}

var _ domain.AuthAPI = (*Auth)(nil)

func NewAuth(c *Client) *Auth { return &Auth{c: c} }

type credentials struct {
	Email    string `json:"email"`
	Nombre   string `json:"nombre,omitempty"`
	Password string `json:"password"`
}

func (a *Auth) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var out domain.AuthResult
	if err := a.c.doJSON(ctx, http.MethodPost, "auth/login", nil, credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) Register(ctx context.Context, email, nombre, password string) (*domain.AuthResult, error) {
	var out domain.AuthResult
	in := credentials{Email: email, Nombre: nombre, Password: password}
	if err := a.c.doJSON(ctx, http.MethodPost, "auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.c.doJSON(ctx, http.MethodPost, "auth/logout", nil, nil, nil)
}

func (a *Auth) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := a.c.doJSON(ctx, http.MethodGet, "auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile: el backend recibe el nombre por query string.
func (a *Auth) UpdateProfile(ctx context.Context, nombre string) error {
	return a.c.doJSON(ctx, http.MethodPut, "auth/me", url.Values{"nombre": {nombre}}, nil, nil)
}

func (a *Auth) ChangePassword(ctx context.Context, current, next string) error {
	in := struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}{current, next}
	return a.c.doJSON(ctx, http.MethodPost, "auth/change-password", nil, in, nil)
}
