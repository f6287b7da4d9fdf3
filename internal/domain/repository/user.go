package repository

import (
	"context"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// UserRepository define operaciones sobre balances de usuarios.
type UserRepository interface {
	// Get busca el balance de un usuario por su UUID externo.
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, userID string) (*types.UserBalance, error)

	// Upsert crea o actualiza el balance. Un Name vacío no pisa el guardado.
	Upsert(ctx context.Context, u types.UserBalance) error
}
