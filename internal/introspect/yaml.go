package introspect

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specql/internal/ir"
)

// EncodeYAML writes defs as a YAML document in declaration order.
// The output loads back through the loader unchanged.
func EncodeYAML(w io.Writer, defs ir.IRValue) error {
	node, err := ir.ToYAMLNode(defs)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
