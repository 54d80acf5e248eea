package localfs

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/adapters/storage"
	"github.com/phenrril/aurum/internal/domain"
)

const (
	defaultPollInterval = time.Second
	fileExt             = ".kv"
)

// Store guarda cada clave en su propio archivo dentro de dir. Varios procesos pueden
// compartir el directorio: cada escritura reemplaza un solo archivo con un rename atómico,
// así que solo compiten las escrituras sobre la misma clave y ahí gana la última.
type Store struct {
	dir          string
	PollInterval time.Duration
}

func New(dir string) *Store {
	return &Store{dir: dir, PollInterval: defaultPollInterval}
}

func (s *Store) Dir() string { return s.dir }

// el nombre de archivo es la clave en base64 url-safe, reversible y sin separadores
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileExt)
}

func keyOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// snapshot lee todas las claves del directorio. Archivos ajenos o temporales se ignoran.
func (s *Store) snapshot(context.Context) (map[string]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := keyOf(e.Name())
		if !ok {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// borrado entre ReadDir y ReadFile
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("file", e.Name()).Msg("leer clave")
			}
			continue
		}
		m[key] = string(b)
	}
	return m, nil
}

func (s *Store) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return storage.Poll(ctx, interval, s.snapshot, nil, fn)
}
