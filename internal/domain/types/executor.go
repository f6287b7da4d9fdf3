package types

import "slices"

// ExecutorDef es un bundle de comandos definido en algún nodo y replicado
// en modo solo lectura. Inmutable una vez construido.
type ExecutorDef struct {
	id          string
	displayName string
	cost        float64
	commands    []string
}

// NewExecutorDef construye un ExecutorDef copiando la lista de comandos.
func NewExecutorDef(id, displayName string, cost float64, commands []string) ExecutorDef {
	return ExecutorDef{
		id:          id,
		displayName: displayName,
		cost:        cost,
		commands:    slices.Clone(commands),
	}
}

func (e ExecutorDef) ID() string          { return e.id }
func (e ExecutorDef) DisplayName() string { return e.displayName }
func (e ExecutorDef) Cost() float64       { return e.cost }

// Commands retorna una copia, en orden.
func (e ExecutorDef) Commands() []string { return slices.Clone(e.commands) }
