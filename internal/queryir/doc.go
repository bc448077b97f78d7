// Package queryir provides the resolved query intermediate representation
// handed from the compiler to a SQL renderer.
//
// A Query is a join tree plus an ordered projection list. Every identifier
// in it is already resolved: join nodes carry the alias chosen for this
// query, predicates reference aliases, and expressions reference columns by
// (alias, column). Renderers never consult the schema.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only Column,
// Literal and Call implement it, so renderers can switch exhaustively:
//
//	switch e := expr.(type) {
//	case Column:
//	    // alias.column
//	case Literal:
//	    // quoted or verbatim value
//	case Call:
//	    // FUNC(args...)
//	}
//
// The tree is built fresh for every query and never shared between calls.
package queryir
