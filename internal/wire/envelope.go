// Package wire define el envelope replicado y su codificación.
//
// El payload es un tipo cerrado (sum type): se decodifica una sola vez en el
// borde del transporte y el dispatch hace un type switch exhaustivo.
package wire

import (
	"github.com/google/uuid"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// MessageType es el discriminador del envelope en el wire.
type MessageType string

const (
	TypeUserUpdate        MessageType = "USER_UPDATE"
	TypeMultiplierUpdate  MessageType = "MULTIPLIER_UPDATE"
	TypeMultiplierDisable MessageType = "MULTIPLIER_DISABLE"
	TypeGetExecutors      MessageType = "GET_EXECUTORS"
)

// Envelope es la unidad replicada. MessageID solo sirve para suprimir el
// eco propio dentro de un round-trip; no es un identificador durable.
type Envelope struct {
	MessageID string
	Payload   Payload
}

// Type retorna el discriminador del payload.
func (e Envelope) Type() MessageType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.messageType()
}

// Payload es implementado solo por los tipos de este paquete.
type Payload interface {
	messageType() MessageType
}

// UserUpdate replica el balance de un usuario.
type UserUpdate struct {
	UserID  string
	Balance float64
}

// MultiplierUpdate replica un multiplier. Multiplier nil = pull request.
type MultiplierUpdate struct {
	Multiplier *types.Multiplier
	Enable     bool
}

// MultiplierDisable replica la baja de un multiplier.
type MultiplierDisable struct {
	Multiplier types.Multiplier
}

// Executors replica un executor. Executor nil = pull request.
type Executors struct {
	Executor *types.ExecutorDef
}

func (UserUpdate) messageType() MessageType        { return TypeUserUpdate }
func (MultiplierUpdate) messageType() MessageType  { return TypeMultiplierUpdate }
func (MultiplierDisable) messageType() MessageType { return TypeMultiplierDisable }
func (Executors) messageType() MessageType         { return TypeGetExecutors }

// IsPull retorna true si el payload es un pull request (sin contenido).
func IsPull(p Payload) bool {
	switch v := p.(type) {
	case MultiplierUpdate:
		return v.Multiplier == nil
	case Executors:
		return v.Executor == nil
	}
	return false
}

// New arma un envelope con un messageId nuevo.
func New(p Payload) Envelope {
	return Envelope{MessageID: uuid.NewString(), Payload: p}
}
