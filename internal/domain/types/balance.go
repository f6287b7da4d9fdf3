package types

import "time"

// UnknownBalance es el sentinel de "balance desconocido, no propagar".
const UnknownBalance float64 = -1

// UserBalance es el balance de un usuario tal como lo ve un nodo.
type UserBalance struct {
	ID       string // UUID externo del usuario
	Name     string // opcional, display name
	Balance  float64
	LastSeen time.Time
}

// Known retorna true si el balance no es el sentinel.
func (u UserBalance) Known() bool { return u.Balance > UnknownBalance }
