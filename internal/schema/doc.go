// Package schema normalizes raw table definitions and holds them in an
// immutable Registry.
//
// Normalize is the define-time front-end: every join target and via table
// must exist, so a bad relationship fails at configuration time and never
// at query time. The Registry derives the public schema (hidden tables,
// columns and joins removed) once, when it is built.
package schema
