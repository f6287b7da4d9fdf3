// Package repository define los contratos de almacenamiento durable.
//
// El storage es autoritativo en la recuperación de un nodo: balances y
// multipliers se recargan desde aquí al arrancar. Las implementaciones
// concretas viven en internal/store/adapters/.
//
//	┌─────────────────────────────────────────────────────┐
//	│     replication.Service / multiplier.Manager        │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│      UserRepository, MultiplierRepository           │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┼──────────────┐
//	         ▼              ▼              ▼
//	┌─────────────┐  ┌─────────────┐  ┌─────────────┐
//	│  adapters/  │  │  adapters/  │  │  adapters/  │
//	│     pg      │  │   badger    │  │    noop     │
//	│ (compartido)│  │ (por nodo)  │  │             │
//	└─────────────┘  └─────────────┘  └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//
//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=mocks/mock_user.go -package=mocks
//go:generate go run go.uber.org/mock/mockgen -source=multiplier.go -destination=mocks/mock_multiplier.go -package=mocks
package repository
