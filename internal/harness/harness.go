package harness

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specql/internal/compiler"
	"github.com/roach88/specql/internal/ir"
	"github.com/roach88/specql/internal/loader"
	"github.com/roach88/specql/internal/querysql"
	"github.com/roach88/specql/internal/testutil"
)

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the compiler.
// Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh compiler with deterministic via ids.
//
// Execution flow:
// 1. Load definitions (file or inline) and define them
// 2. Register scenario functions
// 3. Compile every case twice, checking expectations and determinism
// 4. Check plan properties and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// expectation failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	defs, err := scenarioDefinitions(scenario)
	if err != nil {
		return nil, err
	}

	dialect, err := querysql.DialectByName(scenario.Dialect)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	c := compiler.New(
		compiler.WithDialect(dialect),
		compiler.WithStrict(scenario.Strict),
		compiler.WithIDGenerator(testutil.NewSequenceGenerator("via")),
		compiler.WithLogger(cfg.logger),
	)
	for i, fn := range scenario.Functions {
		prefill, err := functionArgs(fn)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: functions[%d]: %w", scenario.Name, i, err)
		}
		if _, err := c.RegisterFunction(fn.ID, fn.Name, prefill...); err != nil {
			return nil, fmt.Errorf("scenario %s: functions[%d]: %w", scenario.Name, i, err)
		}
	}

	result := NewResult(scenario.Name)

	if err := c.Define(defs); err != nil {
		code := compiler.ErrorCode(err)
		result.DefineError = code
		if scenario.DefineError == "" {
			result.AddError(fmt.Sprintf("define failed: %v", err))
		} else if code != scenario.DefineError {
			result.AddError(fmt.Sprintf("define: expected error %s, got %v", scenario.DefineError, err))
		}
		return result, nil
	}
	if scenario.DefineError != "" {
		result.AddError(fmt.Sprintf("define: expected error %s, definitions were accepted", scenario.DefineError))
		return result, nil
	}

	for _, tc := range scenario.Cases {
		cr, err := runCase(c, tc)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.Cases = append(result.Cases, cr)
		for _, msg := range checkCase(tc, cr) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{Compiler: c}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioDefinitions(s *Scenario) (ir.IRValue, error) {
	if s.Schema != "" {
		defs, err := loader.LoadDefinitions(s.Schema)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		return defs, nil
	}
	defs, err := ir.FromYAMLNode(&s.Definitions)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: definitions: %w", s.Name, err)
	}
	return defs, nil
}

func functionArgs(fn FunctionDef) ([]ir.IRValue, error) {
	if fn.Args.IsZero() {
		return nil, nil
	}
	v, err := ir.FromYAMLNode(&fn.Args)
	if err != nil {
		return nil, err
	}
	if arr, ok := v.(ir.IRArray); ok {
		return arr, nil
	}
	return []ir.IRValue{v}, nil
}

// runCase compiles one case twice. Compilation errors are part of the
// case result; only an unreadable query is returned as an error.
func runCase(c *compiler.Compiler, tc Case) (CaseResult, error) {
	cr := CaseResult{Name: tc.Name}

	spec, err := queryValue(&tc.Query)
	if err != nil {
		return cr, fmt.Errorf("case %s: %w", tc.Name, err)
	}

	res, err := c.Query(spec)
	if err != nil {
		cr.ErrorCode = compiler.ErrorCode(err)
		cr.Error = err.Error()
		return cr, nil
	}
	cr.SQL = res.SQL
	cr.Formatted = res.Formatted
	cr.QueryID = res.QueryID
	cr.plan = res.Plan

	again, err := c.Query(spec)
	switch {
	case err != nil:
		cr.Error = fmt.Sprintf("second compilation failed: %v", err)
	case again.SQL != res.SQL || again.QueryID != res.QueryID:
		cr.Error = fmt.Sprintf("compilation is not deterministic: %q then %q", res.SQL, again.SQL)
	}
	return cr, nil
}

func queryValue(n *yaml.Node) (ir.IRValue, error) {
	// A scalar query is a JSON document, so cases can be copied verbatim
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		return ir.ParseJSON([]byte(n.Value))
	}
	return ir.FromYAMLNode(n)
}

// checkCase compares a case result with its expectation.
func checkCase(tc Case, cr CaseResult) []string {
	var errs []string
	switch {
	case tc.Expect.Error != "":
		if cr.ErrorCode != tc.Expect.Error {
			got := cr.SQL
			if cr.Error != "" {
				got = cr.Error
			}
			errs = append(errs, fmt.Sprintf("case %s: expected error %s, got %s", tc.Name, tc.Expect.Error, got))
		}
	case cr.plan == nil:
		errs = append(errs, fmt.Sprintf("case %s: compile failed: %s", tc.Name, cr.Error))
	default:
		if cr.SQL != tc.Expect.SQL {
			errs = append(errs, fmt.Sprintf("case %s: SQL mismatch\n  expected: %s\n  actual:   %s", tc.Name, tc.Expect.SQL, cr.SQL))
		}
		if cr.Error != "" {
			errs = append(errs, fmt.Sprintf("case %s: %s", tc.Name, cr.Error))
		}
		for _, p := range CheckPlan(cr.plan) {
			errs = append(errs, fmt.Sprintf("case %s: %s", tc.Name, p))
		}
	}
	return errs
}
