package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - CLUSTER
// =================================================================================

// NodeID crea un campo para el nombre lógico del nodo.
func NodeID(v string) zap.Field {
	return zap.String("node_id", v)
}

// Transport crea un campo para el tipo de bus (none, memory, redis, relay).
func Transport(v string) zap.Field {
	return zap.String("transport", v)
}

// MessageID crea un campo para el id de un envelope.
// Solo sirve como correlación dentro de un único round-trip.
func MessageID(v string) zap.Field {
	return zap.String("message_id", v)
}

// MessageType crea un campo para el tipo de envelope.
func MessageType(v string) zap.Field {
	return zap.String("message_type", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Balance crea un campo para un balance.
func Balance(v float64) zap.Field {
	return zap.Float64("balance", v)
}

// MultiplierID crea un campo para el ID de un multiplier.
func MultiplierID(v int64) zap.Field {
	return zap.Int64("multiplier_id", v)
}

// State crea un campo para el estado de un multiplier.
func State(v string) zap.Field {
	return zap.String("state", v)
}

// ExecutorID crea un campo para el ID de un executor.
func ExecutorID(v string) zap.Field {
	return zap.String("executor_id", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Path crea un campo para un path (archivo o HTTP).
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}
