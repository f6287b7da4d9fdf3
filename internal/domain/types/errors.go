package types

import "errors"

var (
	// ErrInvalidTransition indica un salto no permitido en la máquina de estados del multiplier.
	ErrInvalidTransition = errors.New("invalid multiplier transition")

	// ErrNegativeBalance indica que la operación dejaría un balance negativo.
	ErrNegativeBalance = errors.New("negative balance")

	// ErrInvalidMultiplier indica un multiplier con campos inválidos (amount, duración, scope).
	ErrInvalidMultiplier = errors.New("invalid multiplier")
)
