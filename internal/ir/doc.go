// Package ir provides the intermediate representation shared by every
// specql package.
//
// Raw definition and query documents are first parsed into the sealed
// IRValue variants (ParseJSON, FromYAMLNode, FromCUE, FromAny). The schema
// and query normalizers consume only IRValue, never decoded Go maps, so
// input shape is checked in one place.
//
// The package also holds the canonical schema and query types (TableDef,
// QuerySpec) and the content hashes built on RFC 8785 canonical JSON.
//
// All other internal packages import ir; ir imports nothing internal.
package ir
