package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("no encontrado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrStorageCorrupt    = errors.New("almacenamiento corrupto")
	ErrSessionExpired    = errors.New("sesión expirada")
	ErrForbidden         = errors.New("no tiene permisos de administrador")
	ErrInvalidProduct    = errors.New("producto inválido")
)

// NetworkError envuelve fallas de transporte y respuestas no-2xx del backend.
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "error en la petición"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InsufficientStockMessage es el texto que ve el usuario cuando pide más de lo que hay.
func InsufficientStockMessage(stock int) string {
	return fmt.Sprintf("Solo hay %d unidades disponibles", stock)
}
