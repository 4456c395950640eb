package grove

import (
	"fmt"
	"strings"
)

// Generic is an unbound generic definition such as Runner[T]. Its identity is
// the pointer returned by [NewGeneric]; the name is only used for display.
type Generic struct {
	name  string
	arity int
}

// NewGeneric declares a generic definition taking arity type arguments.
// It panics with [ErrBadDefinition] if arity is less than one.
func NewGeneric(name string, arity int) *Generic {
	if arity < 1 {
		_ = throw(badDefinition("generic %s must take at least one type argument", name))
	}
	return &Generic{
		name:  name,
		arity: arity,
	}
}

// Of applies g to the given type arguments. It panics with
// [ErrBadDefinition] when the number of arguments differs from the arity.
func (g *Generic) Of(args ...Key) Key {
	return applyGeneric(g, args)
}

// Open returns g applied to its own placeholders, Param(0) to Param(arity-1).
func (g *Generic) Open() Key {
	params := make([]Key, g.arity)
	for i := range params {
		params[i] = Param(i)
	}
	return applyGeneric(g, params)
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Arity() int { return g.arity }

func (g *Generic) String() string {
	params := make([]string, g.arity)
	for i := range params {
		params[i] = fmt.Sprintf("T%d", i)
	}
	return g.name + "[" + strings.Join(params, ", ") + "]"
}
