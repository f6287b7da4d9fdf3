package types

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Scope indica si un multiplier aplica a un nodo o a todos.
type Scope string

const (
	ScopePerNode Scope = "PER_NODE"
	ScopeGlobal  Scope = "GLOBAL"
)

// IsValid retorna true si el scope es conocido.
func (s Scope) IsValid() bool {
	return s == ScopePerNode || s == ScopeGlobal
}

// ParseScope acepta el nombre en cualquier capitalización ("global", "per_node").
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToUpper(strings.TrimSpace(s)))
	if !sc.IsValid() {
		return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidMultiplier, s)
	}
	return sc, nil
}

// MultiplierState es el estado de una instancia de multiplier.
type MultiplierState string

const (
	StateQueued   MultiplierState = "QUEUED"
	StateEnabled  MultiplierState = "ENABLED"
	StateDisabled MultiplierState = "DISABLED"
)

// transitions es el grafo completo de la máquina de estados.
// DISABLED es terminal: re-habilitar implica crear una instancia nueva.
var transitions = map[MultiplierState][]MultiplierState{
	StateQueued:  {StateEnabled, StateDisabled},
	StateEnabled: {StateDisabled},
}

// CanTransition retorna true si from → to es una arista válida.
func CanTransition(from, to MultiplierState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NoID es el ID de un multiplier que todavía no fue persistido.
const NoID int64 = -1

// Multiplier es un bonus temporal aplicado a los balances de un nodo.
type Multiplier struct {
	ID              int64
	Scope           Scope
	NodeID          string
	Amount          int
	DurationMinutes int
	EnablerID       string // vacío si no hay usuario asociado
	EnablerName     string
	State           MultiplierState
	EndTime         int64 // epoch millis; 0 mientras está en cola
	Extra           map[string]string
}

// Validate chequea los campos que la máquina de estados asume.
func (m Multiplier) Validate() error {
	switch {
	case !m.Scope.IsValid():
		return fmt.Errorf("%w: scope %q", ErrInvalidMultiplier, m.Scope)
	case m.Amount < 1:
		return fmt.Errorf("%w: amount %d", ErrInvalidMultiplier, m.Amount)
	case m.DurationMinutes < 1:
		return fmt.Errorf("%w: duration %d", ErrInvalidMultiplier, m.DurationMinutes)
	case m.Scope == ScopePerNode && m.NodeID == "":
		return fmt.Errorf("%w: per-node multiplier without node", ErrInvalidMultiplier)
	}
	return nil
}

// Persisted retorna true si el storage ya le asignó un ID.
func (m Multiplier) Persisted() bool { return m.ID != NoID }

// Duration retorna la duración configurada.
func (m Multiplier) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// EndAt retorna EndTime como time.Time.
func (m Multiplier) EndAt() time.Time { return time.UnixMilli(m.EndTime) }

// Expired retorna true si está habilitado y now >= EndTime.
func (m Multiplier) Expired(now time.Time) bool {
	return m.State == StateEnabled && now.UnixMilli() >= m.EndTime
}

// MultiplierKey identifica una instancia entre nodos. Los IDs los asigna el
// storage de cada nodo, así que solo son únicos junto con el origen.
type MultiplierKey struct {
	Origin string
	ID     int64
	Scope  Scope
}

func (k MultiplierKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.Origin, k.ID, k.Scope)
}

// Key retorna la identidad de m. No incluye NodeID: los GLOBAL se
// reescriben con el nombre del nodo receptor.
func (m Multiplier) Key() MultiplierKey {
	return MultiplierKey{Origin: m.Origin(), ID: m.ID, Scope: m.Scope}
}

// SameAs compara identidad (no contenido).
func (m Multiplier) SameAs(o Multiplier) bool {
	return m.Key() == o.Key()
}

// Transition aplica from → to validando la arista.
func (m *Multiplier) Transition(to MultiplierState) error {
	if !CanTransition(m.State, to) {
		return fmt.Errorf("%w: %s -> %s (id=%d)", ErrInvalidTransition, m.State, to, m.ID)
	}
	m.State = to
	return nil
}

// Clone retorna una copia sin aliasing del mapa Extra.
func (m Multiplier) Clone() Multiplier {
	m.Extra = maps.Clone(m.Extra)
	return m
}

// ExtraOrigin es la clave de Extra con el nodo que creó la instancia. Viaja
// con el multiplier y sobrevive la sustitución de nodo de los GLOBAL.
const ExtraOrigin = "origin"

// Origin retorna el nodo creador. Sin la clave, un PER_NODE pertenece a su
// propio nodo y un GLOBAL no tiene dueño conocido.
func (m Multiplier) Origin() string {
	if o := m.Extra[ExtraOrigin]; o != "" {
		return o
	}
	if m.Scope == ScopePerNode {
		return m.NodeID
	}
	return ""
}
