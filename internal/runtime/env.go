package runtime

import (
	"fmt"

	"github.com/llir/llvm/ir/value"
)

// Environment holds the values of one function activation: its parameters
// and the results of the instructions executed so far. Every IR value is
// defined exactly once per activation.
type Environment struct {
	values map[value.Value]Value
}

// NewEnvironment creates an empty activation.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[value.Value]Value)}
}

// Define records the value produced by v.
func (e *Environment) Define(v value.Value, val Value) {
	e.values[v] = val
}

// Get returns the value produced by v.
func (e *Environment) Get(v value.Value) (Value, error) {
	if val, ok := e.values[v]; ok {
		return val, nil
	}
	return nil, fmt.Errorf("use of %s before its definition", v.Ident())
}
