package repository

import (
	"context"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// MultiplierRepository define operaciones sobre multipliers.
type MultiplierRepository interface {
	// Save inserta (si m.ID == types.NoID, asignando el ID) o actualiza.
	Save(ctx context.Context, m *types.Multiplier) error

	// Delete elimina el multiplier id solo si fue creado por origin
	// (ver types.Multiplier.Origin). Eliminar uno inexistente o de otro
	// origen no es error.
	Delete(ctx context.Context, id int64, origin string) error

	// ListByNode retorna los multipliers QUEUED/ENABLED del nodo más los GLOBAL.
	ListByNode(ctx context.Context, nodeID string) ([]types.Multiplier, error)
}
