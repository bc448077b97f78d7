package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/specql/internal/ir"
)

// marshalSpec converts a raw query spec to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so the stored text matches what the query id hashes.
func marshalSpec(spec ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("marshal spec: %w", err)
	}
	return string(data), nil
}

// unmarshalSpec parses stored spec TEXT back into an IRValue.
// Goes through ir.ParseJSON so integers beyond 2^53 stay exact.
func unmarshalSpec(data string) (ir.IRValue, error) {
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	return v, nil
}

// marshalDefinitions stores tables in declaration order.
// NOTE: not canonical; canonical key sorting would reorder the tables.
func marshalDefinitions(tables []ir.TableDef) (string, error) {
	data, err := ir.Definitions(tables).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal definitions: %w", err)
	}
	return string(data), nil
}

func unmarshalDefinitions(data string) (ir.IRObject, error) {
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal definitions: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal definitions: expected object, got %s", ir.TypeName(v))
	}
	return obj, nil
}

// marshalPublicSchema converts the public schema to JSON TEXT.
// PublicTable is a plain struct, so encoding/json field order is already stable.
func marshalPublicSchema(public []ir.PublicTable) (string, error) {
	if public == nil {
		public = []ir.PublicTable{}
	}
	data, err := json.Marshal(public)
	if err != nil {
		return "", fmt.Errorf("marshal public schema: %w", err)
	}
	return string(data), nil
}

func unmarshalPublicSchema(data string) ([]ir.PublicTable, error) {
	public := []ir.PublicTable{}
	if data == "" {
		return public, nil
	}
	if err := json.Unmarshal([]byte(data), &public); err != nil {
		return nil, fmt.Errorf("unmarshal public schema: %w", err)
	}
	return public, nil
}
