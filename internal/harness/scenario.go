package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one schema and the queries
// compiled against it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a path to a definitions file (.json, .yaml, .yml, .cue) or
	// CUE package directory. Relative paths resolve against the scenario file.
	Schema string `yaml:"schema,omitempty"`

	// Definitions are inline table definitions. Exactly one of Schema and
	// Definitions must be set.
	Definitions yaml.Node `yaml:"definitions,omitempty"`

	// Dialect names the SQL dialect; empty means ansi.
	Dialect string `yaml:"dialect,omitempty"`

	// Strict turns unknown parent and join references into errors.
	Strict bool `yaml:"strict,omitempty"`

	// Functions are registered before any case runs.
	Functions []FunctionDef `yaml:"functions,omitempty"`

	// DefineError is the code the definitions are expected to fail with.
	// When set, Cases must be empty.
	DefineError string `yaml:"define_error,omitempty"`

	// Cases are compiled in order.
	Cases []Case `yaml:"cases,omitempty"`

	// Assertions validate the compiled plans and the public schema.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FunctionDef registers one function.
type FunctionDef struct {
	ID   string    `yaml:"id"`
	Name string    `yaml:"name,omitempty"`
	Args yaml.Node `yaml:"args,omitempty"`
}

// Case is one query and its expected outcome.
type Case struct {
	Name   string    `yaml:"name"`
	Query  yaml.Node `yaml:"query"`
	Expect Expect    `yaml:"expect"`
}

// Expect specifies the expected outcome of a case: SQL text or an error code.
type Expect struct {
	SQL   string `yaml:"sql,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Assertion validates a compiled plan or the public schema.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Case names the case the assertion inspects.
	Case string `yaml:"case,omitempty"`

	// Cases lists the cases compared by same_query_id.
	Cases []string `yaml:"cases,omitempty"`

	// Text is the expected SQL fragment (sql_contains).
	Text string `yaml:"text,omitempty"`

	// Tables is the expected table order (join_order, public_tables).
	Tables []string `yaml:"tables,omitempty"`

	// Aliases is the expected projection alias order (projection_aliases).
	Aliases []string `yaml:"aliases,omitempty"`

	// Count is the expected number of joined tables (join_count).
	Count int `yaml:"count,omitempty"`

	// Names are tables or table.column pairs expected to be hidden (hidden).
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains       = "sql_contains"
	AssertJoinOrder         = "join_order"
	AssertJoinCount         = "join_count"
	AssertProjectionAliases = "projection_aliases"
	AssertSameQueryID       = "same_query_id"
	AssertPublicTables      = "public_tables"
	AssertHidden            = "hidden"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving a relative schema path
// against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && baseDir != "" {
		scenario.Schema = filepath.Join(baseDir, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files directly under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasInline := !s.Definitions.IsZero()
	switch {
	case s.Schema == "" && !hasInline:
		return fmt.Errorf("schema or definitions is required")
	case s.Schema != "" && hasInline:
		return fmt.Errorf("schema and definitions are mutually exclusive")
	}
	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, fn := range s.Functions {
		if fn.ID == "" {
			return fmt.Errorf("functions[%d]: id is required", i)
		}
	}

	if s.DefineError != "" {
		if len(s.Cases) > 0 {
			return fmt.Errorf("define_error scenarios must not list cases")
		}
		return nil
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true
		if c.Query.IsZero() {
			return fmt.Errorf("cases[%d]: query is required", i)
		}
		if (c.Expect.SQL == "") == (c.Expect.Error == "") {
			return fmt.Errorf("cases[%d].expect: exactly one of sql and error is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, cases map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsCase := func() error {
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for %s", index, a.Type)
		}
		if !cases[a.Case] {
			return fmt.Errorf("assertions[%d]: unknown case %q", index, a.Case)
		}
		return nil
	}

	switch a.Type {
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
		return needsCase()
	case AssertJoinOrder:
		if len(a.Tables) == 0 {
			return fmt.Errorf("assertions[%d]: tables list is required for join_order", index)
		}
		return needsCase()
	case AssertJoinCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for join_count", index)
		}
		return needsCase()
	case AssertProjectionAliases:
		return needsCase()
	case AssertSameQueryID:
		if len(a.Cases) < 2 {
			return fmt.Errorf("assertions[%d]: at least two cases are required for same_query_id", index)
		}
		for _, name := range a.Cases {
			if !cases[name] {
				return fmt.Errorf("assertions[%d]: unknown case %q", index, name)
			}
		}
	case AssertPublicTables:
		if a.Tables == nil {
			return fmt.Errorf("assertions[%d]: tables list is required for public_tables", index)
		}
	case AssertHidden:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for hidden", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
