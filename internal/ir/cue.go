package ir

import (
	"fmt"

	"cuelang.org/go/cue"
)

// FromCUE converts a concrete CUE value into an IRValue.
// Struct field order follows the CUE source; definitions and hidden fields are skipped.
func FromCUE(v cue.Value) (IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s: %w", v.Path(), err)
	}
	return fromCUE(v)
}

func fromCUE(v cue.Value) (IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return IRBool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return IRString(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return cueNumberText(v)
		}
		return IRInt(i), nil
	case cue.FloatKind:
		return cueNumberText(v)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := IRArray{}
		for iter.Next() {
			elem, err := fromCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", len(arr), err)
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := IRObject{}
		for iter.Next() {
			elem, err := fromCUE(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", iter.Label(), err)
			}
			obj.Set(iter.Label(), elem)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%s: unsupported CUE kind %s", v.Path(), v.Kind())
	}
}

// cueNumberText keeps the exact decimal text CUE prints for a number.
func cueNumberText(v cue.Value) (IRValue, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return IRNumber(string(b)), nil
}
