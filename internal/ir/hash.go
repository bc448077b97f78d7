package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSchema = "specql/schema/v1"
	DomainQuery  = "specql/query/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaHash computes the content hash of a set of table definitions.
// Table order is significant: it is the order PublicSchema reports.
func SchemaHash(tables []TableDef) (string, error) {
	arr := make(IRArray, len(tables))
	for i, t := range tables {
		arr[i] = t.IR()
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// QueryID computes the content-addressed id of a compiled query.
// Raw specs that normalize to the same QuerySpec against the same
// schema and dialect always yield the same id.
func QueryID(spec *QuerySpec, schemaHash, dialect string) (string, error) {
	obj := IRObject{
		{Key: "spec", Value: spec.IR()},
		{Key: "schema_hash", Value: IRString(schemaHash)},
		{Key: "dialect", Value: IRString(dialect)},
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("QueryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchemaHash(tables []TableDef) string {
	h, err := SchemaHash(tables)
	if err != nil {
		panic(err)
	}
	return h
}

// IR converts a table definition into its IRValue form for hashing.
func (t TableDef) IR() IRObject {
	cols := make(IRArray, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = IRObject{
			{Key: "name", Value: IRString(c.Name)},
			{Key: "alias", Value: IRString(c.Alias)},
			{Key: "hidden", Value: IRBool(c.Hidden)},
		}
	}

	joins := make(IRArray, len(t.Joins))
	for i, j := range t.Joins {
		joins[i] = IRObject{
			{Key: "table", Value: IRString(j.Target)},
			{Key: "alias", Value: IRString(j.Alias)},
			{Key: "source_key", Value: IRString(j.SourceKey)},
			{Key: "target_key", Value: IRString(j.TargetKey)},
			{Key: "via", Value: IRString(j.Via)},
			{Key: "type", Value: IRString(string(j.Type))},
			{Key: "hidden", Value: IRBool(j.Hidden)},
		}
	}

	return IRObject{
		{Key: "name", Value: IRString(t.Name)},
		{Key: "alias", Value: IRString(t.Alias)},
		{Key: "primary_key", Value: IRString(t.PrimaryKey)},
		{Key: "hidden", Value: IRBool(t.Hidden)},
		{Key: "columns", Value: cols},
		{Key: "joins", Value: joins},
	}
}

// IR converts a normalized query into its IRValue form for hashing.
// Absent optional fields are left out so they never collide with
// empty strings or null literals.
func (q QuerySpec) IR() IRObject {
	joins := make(IRArray, len(q.Joins))
	for i, j := range q.Joins {
		obj := IRObject{{Key: "table", Value: IRString(j.Table)}}
		optional(&obj, "id", j.ID)
		optional(&obj, "alias", j.Alias)
		optional(&obj, "parent_id", j.ParentID)
		joins[i] = obj
	}

	selects := make(IRArray, len(q.Selects))
	for i, s := range q.Selects {
		obj := IRObject{{Key: "name", Value: IRString(s.Name)}}
		optional(&obj, "join_id", s.JoinID)
		optional(&obj, "table", s.Table)
		optional(&obj, "as", s.As)
		if len(s.Functions) > 0 {
			fns := make(IRArray, len(s.Functions))
			for k, f := range s.Functions {
				fns[k] = IRObject{
					{Key: "name", Value: IRString(f.Name)},
					{Key: "args", Value: append(IRArray{}, f.Args...)},
				}
			}
			obj.Set("functions", fns)
		}
		if s.Value != nil {
			obj.Set("value", s.Value)
		}
		selects[i] = obj
	}

	return IRObject{
		{Key: "joins", Value: joins},
		{Key: "selects", Value: selects},
	}
}

func optional(obj *IRObject, key, value string) {
	if value != "" {
		obj.Set(key, IRString(value))
	}
}

// Definitions converts canonical tables back into raw definition form,
// keyed by table name in declaration order. Normalizing the result
// reproduces tables and their SchemaHash.
func Definitions(tables []TableDef) IRObject {
	obj := make(IRObject, len(tables))
	for i, t := range tables {
		obj[i] = IRMember{Key: t.Name, Value: t.IR()}
	}
	return obj
}
