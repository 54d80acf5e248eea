package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/aurum/internal/adapters/storage/memory"
	"github.com/phenrril/aurum/internal/domain"
)

type fakeAuth struct {
	user       domain.User
	token      string
	err        error
	logoutErr  error
	logouts    int
	lastNombre string
	lastPwd    [2]string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*domain.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := f.user
	u.Email = email
	return &domain.AuthResult{AccessToken: f.token, TokenType: "bearer", User: u}, nil
}

func (f *fakeAuth) Register(_ context.Context, email, nombre, _ string) (*domain.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AuthResult{AccessToken: f.token, User: domain.User{ID: "u1", Email: email, Nombre: nombre, Rol: "cliente"}}, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuth) Me(context.Context) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := f.user
	return &u, nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, nombre string) error {
	f.lastNombre = nombre
	return f.err
}

func (f *fakeAuth) ChangePassword(_ context.Context, cur, next string) error {
	f.lastPwd = [2]string{cur, next}
	return f.err
}

func loggedIn(t *testing.T, rol string) (*SessionUC, *fakeAuth, *memory.Store) {
	t.Helper()
	kv := memory.New()
	auth := &fakeAuth{token: "tok-123", user: domain.User{ID: "u1", Nombre: "Ana", Rol: rol}}
	uc := NewSessionUC(kv, auth)
	_, err := uc.Login(context.Background(), "ana@aurum.com", "secreto")
	require.NoError(t, err)
	return uc, auth, kv
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	uc, _, kv := loggedIn(t, "cliente")
	ctx := context.Background()

	assert.Equal(t, "tok-123", uc.Token())
	raw, ok, err := kv.Get(ctx, UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"email":"ana@aurum.com"`)

	u := uc.CurrentUser(ctx)
	require.NotNil(t, u)
	assert.Equal(t, "Ana", u.Nombre)
	assert.False(t, uc.IsAdmin(ctx))
}

func TestLoginFailureKeepsSessionEmpty(t *testing.T) {
	kv := memory.New()
	uc := NewSessionUC(kv, &fakeAuth{err: &domain.NetworkError{Op: "POST /auth/login", Status: 401, Message: "Credenciales inválidas"}})

	_, err := uc.Login(context.Background(), "x@y.com", "mala")
	require.Error(t, err)
	assert.Equal(t, "", uc.Token())
	assert.Nil(t, uc.CurrentUser(context.Background()))

	_, err = uc.Login(context.Background(), " ", "")
	assert.Error(t, err)
}

func TestRegisterValidatesPassword(t *testing.T) {
	uc := NewSessionUC(memory.New(), &fakeAuth{token: "t"})
	ctx := context.Background()

	_, err := uc.Register(ctx, "a@b.com", "Ana", "123")
	assert.Error(t, err)
	assert.Equal(t, "", uc.Token())

	u, err := uc.Register(ctx, "a@b.com", "Ana", "123456")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Nombre)
	assert.Equal(t, "t", uc.Token())
}

func TestIsAdmin(t *testing.T) {
	uc, _, _ := loggedIn(t, domain.RoleAdmin)
	assert.True(t, uc.IsAdmin(context.Background()))

	assert.False(t, NewSessionUC(memory.New(), nil).IsAdmin(context.Background()))
}

func TestLogoutClearsEvenIfBackendFails(t *testing.T) {
	uc, auth, _ := loggedIn(t, "cliente")
	auth.logoutErr = errors.New("caído")

	require.NoError(t, uc.Logout(context.Background()))
	assert.Equal(t, 1, auth.logouts)
	assert.Equal(t, "", uc.Token())
	assert.Nil(t, uc.CurrentUser(context.Background()))

	// sin token no se llama al backend
	require.NoError(t, uc.Logout(context.Background()))
	assert.Equal(t, 1, auth.logouts)
}

func TestExpireClearsSession(t *testing.T) {
	uc, _, _ := loggedIn(t, "cliente")
	uc.Expire()
	assert.Equal(t, "", uc.Token())
	assert.Nil(t, uc.CurrentUser(context.Background()))
}

func TestUpdateProfileRefreshesStoredUser(t *testing.T) {
	uc, auth, _ := loggedIn(t, "cliente")
	ctx := context.Background()

	require.NoError(t, uc.UpdateProfile(ctx, " Ana María "))
	assert.Equal(t, "Ana María", auth.lastNombre)
	assert.Equal(t, "Ana María", uc.CurrentUser(ctx).Nombre)

	assert.Error(t, uc.UpdateProfile(ctx, ""))
}

func TestProfileStoresUser(t *testing.T) {
	uc, auth, _ := loggedIn(t, "cliente")
	auth.user.EmailVerified = true

	u, err := uc.Profile(context.Background())
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.True(t, uc.CurrentUser(context.Background()).EmailVerified)
}

func TestChangePassword(t *testing.T) {
	uc, auth, _ := loggedIn(t, "cliente")
	ctx := context.Background()

	assert.Error(t, uc.ChangePassword(ctx, "vieja", "corta"))
	assert.Error(t, uc.ChangePassword(ctx, "", "larguita"))
	require.NoError(t, uc.ChangePassword(ctx, "vieja", "nueva123"))
	assert.Equal(t, [2]string{"vieja", "nueva123"}, auth.lastPwd)
}

func TestCurrentUserIgnoresGarbage(t *testing.T) {
	kv := memory.New()
	require.NoError(t, kv.Set(context.Background(), UserKey, "{no json"))
	assert.Nil(t, NewSessionUC(kv, nil).CurrentUser(context.Background()))
}
