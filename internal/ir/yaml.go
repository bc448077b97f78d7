package ir

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into an IRValue, preserving mapping order.
func ParseYAML(data []byte) (IRValue, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind == 0 {
		return IRNull{}, nil // empty document
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a yaml.Node tree into an IRValue.
func FromYAMLNode(n *yaml.Node) (IRValue, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return IRNull{}, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.MappingNode:
		obj := make(IRObject, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}
			val, err := FromYAMLNode(valNode)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", keyNode.Value, err)
			}
			obj.Set(keyNode.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(IRArray, 0, len(n.Content))
		for i, elem := range n.Content {
			val, err := FromYAMLNode(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func yamlScalar(n *yaml.Node) (IRValue, error) {
	switch n.ShortTag() {
	case "!!null":
		return IRNull{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return IRBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range: keep the digits
			return IRNumber(n.Value), nil
		}
		return IRInt(i), nil
	case "!!float":
		if json.Valid([]byte(n.Value)) {
			if _, err := strconv.ParseFloat(n.Value, 64); err == nil {
				return IRNumber(n.Value), nil
			}
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return floatValue(f)
	default:
		return IRString(n.Value), nil
	}
}

// ToYAMLNode converts an IRValue into a yaml.Node tree.
// Object order is kept, so encoding the node writes keys in declaration order.
func ToYAMLNode(v IRValue) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case IRString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(val)}, nil
	case IRInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(val), 10)}, nil
	case IRNumber:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: string(val)}, nil
	case IRBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}, nil
	case IRArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, elem := range val {
			child, err := ToYAMLNode(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case IRObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range val {
			child, err := ToYAMLNode(m.Value)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", m.Key, err)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key}
			n.Content = append(n.Content, key, child)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}
