package repository

import "errors"

// Errores que devuelven los adapters. Se comparan con errors.Is; los
// adapters los envuelven con el contexto de la operación.
var (
	// ErrNotFound: el usuario o multiplier no está en el storage.
	ErrNotFound = errors.New("repository: not found")

	// ErrInvalidInput: el adapter rechazó el valor antes de escribir
	// (ej. balance con el sentinel de desconocido).
	ErrInvalidInput = errors.New("repository: invalid input")

	// ErrNoDatabase: el nodo corre sin conexión de storage.
	ErrNoDatabase = errors.New("repository: no database configured")
)

// IsNotFound es errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
