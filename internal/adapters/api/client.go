package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/aurum/internal/domain"
)

// TokenFunc devuelve el bearer actual; "" si no hay sesión.
type TokenFunc func() string

type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client

	onUnauthorized func()
}

type Option func(*Client)

// WithToken agrega Authorization: Bearer leyendo el token en cada request.
func WithToken(fn TokenFunc) Option {
	return func(c *Client) {
		base := c.HTTP.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.HTTP.Transport = &sessionTransport{token: fn, base: base}
	}
}

// WithUnauthorized registra el hook que corre ante un 401.
func WithUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithTransport reemplaza el transport base (tests). Debe ir antes de WithToken.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.HTTP.Transport = rt }
}

// New arma el cliente. timeout 0 significa sin timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("API_BASE_URL inválida %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL inválida %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{BaseURL: u, HTTP: &http.Client{Timeout: timeout}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type sessionSource struct{ token TokenFunc }

func (s sessionSource) Token() (*oauth2.Token, error) {
	t := s.token()
	if t == "" {
		return nil, errors.New("sin token")
	}
	return &oauth2.Token{AccessToken: t, TokenType: "Bearer"}, nil
}

// sessionTransport solo firma cuando hay token; sin sesión el request sale tal cual.
type sessionTransport struct {
	token TokenFunc
	base  http.RoundTripper
}

func (t *sessionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.token() == "" {
		return t.base.RoundTrip(r)
	}
	rt := &oauth2.Transport{Source: sessionSource{token: t.token}, Base: t.base}
	return rt.RoundTrip(r)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		req.body = bytes.NewReader(b)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) doForm(ctx context.Context, method, path string, f *form, out any) error {
	body, ct, err := f.finish()
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: method, path: path, body: body, contentType: ct}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	op := r.method + " /" + r.path
	rel, err := url.Parse(r.path)
	if err != nil {
		return &domain.NetworkError{Op: op, Message: "ruta inválida", Err: err}
	}
	if len(r.query) > 0 {
		rel.RawQuery = r.query.Encode()
	}
	u := c.BaseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("api request")
		return &domain.NetworkError{Op: op, Message: "error de conexión", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Status: res.StatusCode, Message: "error leyendo respuesta", Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		ne := &domain.NetworkError{Op: op, Status: res.StatusCode, Message: detail(body)}
		switch res.StatusCode {
		case http.StatusUnauthorized:
			ne.Err = domain.ErrSessionExpired
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
		case http.StatusNotFound:
			ne.Err = domain.ErrNotFound
		}
		if ne.Message == "" && ne.Err == nil {
			ne.Message = "Error en la petición"
		}
		log.Warn().Str("op", op).Int("status", res.StatusCode).Str("detail", ne.Message).Msg("api error")
		return ne
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.NetworkError{Op: op, Status: res.StatusCode, Message: "respuesta inválida", Err: err}
	}
	return nil
}

// detail extrae el mensaje de error del backend: {"detail": "..."} o la lista de validación.
func detail(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil || len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, it := range list {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(name string, up *domain.Upload) {
	if f.err != nil || up == nil {
		return
	}
	fw, err := f.w.CreateFormFile(name, up.Filename)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = fw.Write(up.Content)
}

func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
