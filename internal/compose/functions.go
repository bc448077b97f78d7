package compose

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/queryir"
)

// Function is a SQL function constructor with optional prefilled arguments.
//
// Prefill may contain ir.Placeholder positions. Apply fills them left to
// right with the call arguments and appends whatever is left, so
//
//	DAY = Function{Name: "DATE_TRUNC", Prefill: ['day', _]}
//
// applied to created_at renders DATE_TRUNC('day', created_at).
type Function struct {
	ID      string
	Name    string
	Prefill []ir.IRValue
}

// Apply wraps expr in a call to f.
//
// args are the caller-declared arguments. expr goes first unless args
// contain a placeholder, in which case expr takes the placeholder positions.
func (f Function) Apply(expr queryir.Expr, args ...ir.IRValue) queryir.Call {
	var callArgs []queryir.Expr
	placed := false
	for _, a := range args {
		if isPlaceholder(a) {
			callArgs = append(callArgs, expr)
			placed = true
			continue
		}
		callArgs = append(callArgs, queryir.Literal{Value: a})
	}
	if !placed {
		callArgs = append([]queryir.Expr{expr}, callArgs...)
	}

	out := make([]queryir.Expr, 0, len(f.Prefill)+len(callArgs))
	next := 0
	for _, p := range f.Prefill {
		if isPlaceholder(p) {
			// Unfilled placeholders are dropped
			if next < len(callArgs) {
				out = append(out, callArgs[next])
				next++
			}
			continue
		}
		out = append(out, queryir.Literal{Value: p})
	}
	out = append(out, callArgs[next:]...)

	return queryir.Call{Func: f.Name, Args: out}
}

func isPlaceholder(v ir.IRValue) bool {
	s, ok := v.(ir.IRString)
	return ok && string(s) == ir.Placeholder
}

// FunctionRegistry maps function ids to constructors.
//
// Thread-safety: Register and Lookup are safe for concurrent use.
// A scoped registry reads through to its parent and never writes to it.
type FunctionRegistry struct {
	mu     sync.RWMutex
	funcs  map[string]Function
	parent *FunctionRegistry
}

// NewFunctionRegistry creates a registry seeded with the built-in functions.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{funcs: make(map[string]Function)}
	for _, name := range []string{
		"SUM", "COUNT", "AVG", "MIN", "MAX",
		"ROUND", "ABS", "UPPER", "LOWER", "TRIM", "LENGTH", "COALESCE",
	} {
		r.mustRegister(name, name)
	}
	for _, unit := range []string{"day", "month", "year"} {
		r.mustRegister(strings.ToUpper(unit), "DATE_TRUNC", ir.IRString(unit), ir.IRString(ir.Placeholder))
	}
	return r
}

// Register adds or replaces the function id and returns it.
// Ids are case-insensitive; an empty name defaults to the id. Both must be
// plain identifiers.
func (r *FunctionRegistry) Register(id, name string, prefill ...ir.IRValue) (Function, error) {
	if name == "" {
		name = id
	}
	for _, s := range []string{id, name} {
		if !ir.IsIdentifier(s) {
			return Function{}, &ComposeError{
				Code:    ErrFunctionName,
				Message: fmt.Sprintf("function %q is not a plain identifier", s),
			}
		}
	}
	f := Function{
		ID:      strings.ToUpper(id),
		Name:    strings.ToUpper(name),
		Prefill: append([]ir.IRValue{}, prefill...),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[f.ID] = f
	return f, nil
}

// mustRegister registers a built-in.
func (r *FunctionRegistry) mustRegister(id, name string, prefill ...ir.IRValue) {
	if _, err := r.Register(id, name, prefill...); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under id, consulting parents.
func (r *FunctionRegistry) Lookup(id string) (Function, bool) {
	id = strings.ToUpper(id)
	for reg := r; reg != nil; reg = reg.parent {
		reg.mu.RLock()
		f, ok := reg.funcs[id]
		reg.mu.RUnlock()
		if ok {
			return f, true
		}
	}
	return Function{}, false
}

// Scope returns an overlay registry for one call. Registrations on the
// overlay are visible only through it.
func (r *FunctionRegistry) Scope() *FunctionRegistry {
	return &FunctionRegistry{
		funcs:  make(map[string]Function),
		parent: r,
	}
}

// IDs returns every visible function id, sorted.
func (r *FunctionRegistry) IDs() []string {
	seen := make(map[string]bool)
	for reg := r; reg != nil; reg = reg.parent {
		reg.mu.RLock()
		for id := range reg.funcs {
			seen[id] = true
		}
		reg.mu.RUnlock()
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
