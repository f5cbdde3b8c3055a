package machine

import (
	"github.com/dolthub/swiss"
	"github.com/orus-lang/orus/lang/compiler"
)

// Registry owns the handful of process-wide lookup tables the host API and
// module loading rely on. Orus has no map value type (ast.TypeID has no
// Map member), so the swiss.Map the teacher used for the language's dict
// value is repurposed here as the backing store for these tables instead,
// per this repo's domain-stack wiring: a hash table the interpreter itself
// needs, not one a script can construct.
type Registry struct {
	// modules records each Program Thread.InterpretModule has run, by
	// module name, so a second InterpretModule call under the same name
	// does not run the module again.
	modules *swiss.Map[string, *compiler.Program]

	// interned is the table intern reads and fills. Nothing calls intern,
	// so string constants are not deduplicated across Programs.
	interned *swiss.Map[string, Str]
}

func newRegistry() *Registry {
	return &Registry{
		modules:  swiss.NewMap[string, *compiler.Program](8),
		interned: swiss.NewMap[string, Str](64),
	}
}

func (r *Registry) module(name string) (*compiler.Program, bool) {
	return r.modules.Get(name)
}

func (r *Registry) setModule(name string, p *compiler.Program) {
	r.modules.Put(name, p)
}

func (r *Registry) intern(s string) Str {
	if v, ok := r.interned.Get(s); ok {
		return v
	}
	v := Str(s)
	r.interned.Put(s, v)
	return v
}
