// Package harness provides conformance testing for specql definitions and queries.
//
// The harness loads a schema, compiles a list of query cases against it,
// checks each case's expected SQL or error code, and evaluates assertions
// over the compiled plans.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schemas/shop.yaml     # or inline under definitions:
//	dialect: ansi
//	strict: false
//	functions:
//	  - id: cents
//	    name: ROUND
//	    args: [_, 2]
//	cases:
//	  - name: simple
//	    query: { from: orders, select: [id] }
//	    expect:
//	      sql: "SELECT o.id FROM orders AS o"
//	  - name: bad_column
//	    query: { from: orders, select: nope }
//	    expect:
//	      error: E321
//	assertions:
//	  - type: join_order
//	    case: simple
//	    tables: [orders]
//
// A scenario that expects its definitions to be rejected sets
// define_error to the expected code and lists no cases.
//
// # Assertion Types
//
//   - sql_contains: The case's SQL contains text
//   - join_order: Tables of the join tree in pre-order, including via tables
//   - join_count: Number of joined tables, root excluded
//   - projection_aliases: Output aliases of the SELECT list, in order
//   - same_query_id: Every listed case compiles to the same query id
//   - public_tables: Table names of the public schema, in order
//   - hidden: Named tables or table.column pairs are absent from the public schema
//
// # Deterministic Testing
//
// Synthetic via nodes get sequential ids (testutil.SequenceGenerator) and
// every case is compiled twice; differing SQL or query ids fail the case.
// Golden snapshots (see Snapshot) hold the formatted SQL of every case.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/via.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
