package harness

import (
	"github.com/roach88/specql/internal/queryir"
)

// CaseResult is the outcome of compiling one case.
type CaseResult struct {
	Name      string `json:"name"`
	SQL       string `json:"sql,omitempty"`
	Formatted string `json:"formatted,omitempty"`
	QueryID   string `json:"query_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	plan *queryir.Query
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario is the name of the executed scenario.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if every case matched its expectation and every assertion held.
	Pass bool `json:"pass"`

	// DefineError is the code of the rejected definitions, if any.
	DefineError string `json:"define_error,omitempty"`

	// Cases holds one entry per scenario case, in scenario order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Cases:    []CaseResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Case returns the result of the named case.
func (r *Result) Case(name string) (*CaseResult, bool) {
	for i := range r.Cases {
		if r.Cases[i].Name == name {
			return &r.Cases[i], true
		}
	}
	return nil, false
}
