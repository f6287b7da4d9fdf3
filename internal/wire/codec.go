package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

var (
	// ErrUnknownType indica un tipo que este nodo no conoce. Se ignora en
	// silencio: un nodo viejo no debe romperse con mensajes nuevos.
	ErrUnknownType = errors.New("wire: unknown message type")

	// ErrMalformed indica un envelope que no se pudo decodificar.
	ErrMalformed = errors.New("wire: malformed envelope")
)

// Codec serializa envelopes hacia/desde bytes.
type Codec interface {
	Name() string
	Encode(env Envelope) ([]byte, error)
	Decode(data []byte) (Envelope, error)
}

// CodecByName resuelve "json" (default) o "msgpack".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("wire: unknown codec %q", name)
}

// ─── Documento en el wire ───

// document es la forma plana key/value del envelope. Los campos de cada tipo
// son opcionales: su ausencia es lo que marca un pull request.
type document struct {
	MessageID  string         `json:"messageid" msgpack:"messageid"`
	Type       MessageType    `json:"type" msgpack:"type"`
	UUID       string         `json:"uuid,omitempty" msgpack:"uuid,omitempty"`
	Coins      *float64       `json:"coins,omitempty" msgpack:"coins,omitempty"`
	Multiplier *multiplierDoc `json:"multiplier,omitempty" msgpack:"multiplier,omitempty"`
	Enable     bool           `json:"enable,omitempty" msgpack:"enable,omitempty"`
	Executor   *executorDoc   `json:"executor,omitempty" msgpack:"executor,omitempty"`
}

type multiplierDoc struct {
	ID          int64                 `json:"id" msgpack:"id"`
	Scope       types.Scope           `json:"scope" msgpack:"scope"`
	Node        string                `json:"node" msgpack:"node"`
	Amount      int                   `json:"amount" msgpack:"amount"`
	Minutes     int                   `json:"minutes" msgpack:"minutes"`
	EnablerID   string                `json:"enabler_id,omitempty" msgpack:"enabler_id,omitempty"`
	EnablerName string                `json:"enabler_name,omitempty" msgpack:"enabler_name,omitempty"`
	State       types.MultiplierState `json:"state" msgpack:"state"`
	EndTime     int64                 `json:"end_time" msgpack:"end_time"`
	Extra       map[string]string     `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

type executorDoc struct {
	ID       string   `json:"id" msgpack:"id"`
	Name     string   `json:"name" msgpack:"name"`
	Cost     float64  `json:"cost" msgpack:"cost"`
	Commands []string `json:"commands" msgpack:"commands"`
}

func toMultiplierDoc(m types.Multiplier) *multiplierDoc {
	return &multiplierDoc{
		ID: m.ID, Scope: m.Scope, Node: m.NodeID, Amount: m.Amount, Minutes: m.DurationMinutes,
		EnablerID: m.EnablerID, EnablerName: m.EnablerName, State: m.State, EndTime: m.EndTime, Extra: m.Extra,
	}
}

func (d *multiplierDoc) toDomain() (types.Multiplier, error) {
	m := types.Multiplier{
		ID: d.ID, Scope: d.Scope, NodeID: d.Node, Amount: d.Amount, DurationMinutes: d.Minutes,
		EnablerID: d.EnablerID, EnablerName: d.EnablerName, State: d.State, EndTime: d.EndTime, Extra: d.Extra,
	}
	if err := m.Validate(); err != nil {
		return types.Multiplier{}, err
	}
	switch m.State {
	case types.StateQueued, types.StateEnabled, types.StateDisabled:
	default:
		return types.Multiplier{}, fmt.Errorf("%w: state %q", types.ErrInvalidMultiplier, m.State)
	}
	return m, nil
}

func toDocument(env Envelope) (document, error) {
	doc := document{MessageID: env.MessageID, Type: env.Type()}
	switch p := env.Payload.(type) {
	case UserUpdate:
		coins := p.Balance
		doc.UUID = p.UserID
		doc.Coins = &coins
	case MultiplierUpdate:
		if p.Multiplier != nil {
			doc.Multiplier = toMultiplierDoc(*p.Multiplier)
			doc.Enable = p.Enable
		}
	case MultiplierDisable:
		doc.Multiplier = toMultiplierDoc(p.Multiplier)
	case Executors:
		if p.Executor != nil {
			e := p.Executor
			doc.Executor = &executorDoc{ID: e.ID(), Name: e.DisplayName(), Cost: e.Cost(), Commands: e.Commands()}
		}
	default:
		return document{}, fmt.Errorf("%w: payload %T", ErrUnknownType, env.Payload)
	}
	if doc.MessageID == "" {
		return document{}, fmt.Errorf("%w: empty messageid", ErrMalformed)
	}
	return doc, nil
}

func fromDocument(doc document) (Envelope, error) {
	if doc.MessageID == "" {
		return Envelope{}, fmt.Errorf("%w: missing messageid", ErrMalformed)
	}
	env := Envelope{MessageID: doc.MessageID}
	switch doc.Type {
	case TypeUserUpdate:
		if doc.UUID == "" || doc.Coins == nil {
			return Envelope{}, fmt.Errorf("%w: USER_UPDATE without uuid/coins", ErrMalformed)
		}
		env.Payload = UserUpdate{UserID: doc.UUID, Balance: *doc.Coins}
	case TypeMultiplierUpdate:
		p := MultiplierUpdate{Enable: doc.Enable}
		if doc.Multiplier != nil {
			m, err := doc.Multiplier.toDomain()
			if err != nil {
				return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			p.Multiplier = &m
		}
		env.Payload = p
	case TypeMultiplierDisable:
		if doc.Multiplier == nil {
			return Envelope{}, fmt.Errorf("%w: MULTIPLIER_DISABLE without multiplier", ErrMalformed)
		}
		m, err := doc.Multiplier.toDomain()
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		env.Payload = MultiplierDisable{Multiplier: m}
	case TypeGetExecutors:
		p := Executors{}
		if e := doc.Executor; e != nil {
			if e.ID == "" {
				return Envelope{}, fmt.Errorf("%w: executor without id", ErrMalformed)
			}
			def := types.NewExecutorDef(e.ID, e.Name, e.Cost, e.Commands)
			p.Executor = &def
		}
		env.Payload = p
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, doc.Type)
	}
	return env, nil
}

// ─── JSON ───

// JSONCodec es el formato textual por defecto.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(env Envelope) ([]byte, error) {
	doc, err := toDocument(env)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (JSONCodec) Decode(data []byte) (Envelope, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromDocument(doc)
}

// ─── MessagePack ───

// MsgpackCodec usa las mismas claves que JSON; lo usa el relay ZeroMQ.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(env Envelope) ([]byte, error) {
	doc, err := toDocument(env)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&doc)
}

func (MsgpackCodec) Decode(data []byte) (Envelope, error) {
	var doc document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromDocument(doc)
}

// ─── Multiplier suelto (snapshot en disco) ───

// EncodeMultiplier serializa un multiplier con el mismo formato que viaja
// dentro de los envelopes. Una línea por registro en el snapshot.
func EncodeMultiplier(m types.Multiplier) ([]byte, error) {
	return json.Marshal(toMultiplierDoc(m))
}

// DecodeMultiplier es la inversa de EncodeMultiplier, con validación.
func DecodeMultiplier(data []byte) (types.Multiplier, error) {
	var d multiplierDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return types.Multiplier{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d.toDomain()
}
