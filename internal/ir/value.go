package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the shapes a raw definition or query
// document can take. Only IRNull, IRString, IRInt, IRNumber, IRBool, IRArray
// and IRObject implement it.
//
// Every front-end (JSON, YAML, CUE, Go values) parses into IRValue first;
// normalizers switch on these variants and nothing else.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an explicit null.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integral number.
type IRInt int64

func (IRInt) irValue() {}

// IRNumber represents a non-integral number as its decimal text.
// The text is kept verbatim so canonical encoding never goes through float64.
type IRNumber string

func (IRNumber) irValue() {}

// MarshalJSON emits the decimal text unquoted.
func (n IRNumber) MarshalJSON() ([]byte, error) {
	if !json.Valid([]byte(n)) {
		return nil, fmt.Errorf("invalid number literal %q", string(n))
	}
	return []byte(n), nil
}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRMember is one key/value pair of an IRObject.
type IRMember struct {
	Key   string
	Value IRValue
}

// IRObject is an ordered object. Declaration order is preserved because
// column order in a table definition is significant.
//
// Keys are unique: Set replaces an existing member in place.
type IRObject []IRMember

func (IRObject) irValue() {}

// Get returns the value stored under key.
func (obj IRObject) Get(key string) (IRValue, bool) {
	for _, m := range obj {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// First returns the value of the first key in keys that is present,
// together with the key that matched.
func (obj IRObject) First(keys ...string) (IRValue, string, bool) {
	for _, k := range keys {
		if v, ok := obj.Get(k); ok {
			return v, k, true
		}
	}
	return nil, "", false
}

// Set stores value under key, keeping the original position of an existing key.
func (obj *IRObject) Set(key string, value IRValue) {
	for i := range *obj {
		if (*obj)[i].Key == key {
			(*obj)[i].Value = value
			return
		}
	}
	*obj = append(*obj, IRMember{Key: key, Value: value})
}

// Keys returns keys in declaration order.
func (obj IRObject) Keys() []string {
	keys := make([]string, len(obj))
	for i, m := range obj {
		keys[i] = m.Key
	}
	return keys
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := obj.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for IRObject, preserving declaration order.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, m := range obj {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(m.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", m.Key, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(m.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", m.Key, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRNumber:
		return val.MarshalJSON()
	case IRBool:
		return json.Marshal(bool(val))
	case IRArray:
		return marshalIRArray(val)
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

func marshalIRArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// TypeName names the variant of v for error messages.
func TypeName(v IRValue) string {
	switch v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return "string"
	case IRInt, IRNumber:
		return "number"
	case IRBool:
		return "bool"
	case IRArray:
		return "array"
	case IRObject:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNull reports whether v is absent or an explicit null.
func IsNull(v IRValue) bool {
	switch v.(type) {
	case nil, IRNull:
		return true
	}
	return false
}

// Text returns the string form of scalar values. Objects and arrays are not text.
func Text(v IRValue) (string, bool) {
	switch val := v.(type) {
	case IRString:
		return string(val), true
	case IRInt:
		return fmt.Sprintf("%d", int64(val)), true
	case IRNumber:
		return string(val), true
	default:
		return "", false
	}
}

// Truthy interprets v as a flag. Only true, non-zero numbers and the strings
// "true"/"yes"/"1" count as set.
func Truthy(v IRValue) bool {
	switch val := v.(type) {
	case IRBool:
		return bool(val)
	case IRInt:
		return val != 0
	case IRString:
		switch string(val) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
