package compiler

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/specql/internal/ir"
)

// CycleWarning describes a via relationship whose expansion loops.
type CycleWarning struct {
	Path    []string `json:"path"`    // Relationship path: ["a->b", "a->c", "a->b"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeViaCycles finds relationships whose via expansion can never
// bottom out in direct joins.
//
// Expanding "a->b via c" requires the hops "a->c" and "c->b". When a hop is
// itself declared with a via table it expands further. Every relationship is
// walked depth first along those hops; reaching a relationship that is still
// on the walk closes a cycle. Each distinct cycle is reported once, rotated
// to start at its smallest relationship, ordered by that relationship.
//
// Such a relationship fails at query time with joins.ErrViaCycle; reporting
// it here catches it at definition time.
func AnalyzeViaCycles(tables []ir.TableDef) []CycleWarning {
	graph := buildViaGraph(tables)
	warnings := []CycleWarning{}
	for _, cycle := range findCycles(graph) {
		warnings = append(warnings, cycleWarning(cycle))
	}
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Path[0] != warnings[j].Path[0] {
			return warnings[i].Path[0] < warnings[j].Path[0]
		}
		return strings.Join(warnings[i].Path, " ") < strings.Join(warnings[j].Path, " ")
	})
	return warnings
}

// dependencyGraph maps a relationship "source->target" to the hops its via
// expansion needs.
type dependencyGraph map[string][]string

func edge(source, target string) string {
	return source + "->" + target
}

// buildViaGraph adds an edge from every via relationship to each of its two
// hops that is itself a via relationship. Hops that resolve directly, or
// through the reverse join, are leaves and are left out.
func buildViaGraph(tables []ir.TableDef) dependencyGraph {
	index := make(map[string]*ir.TableDef, len(tables))
	for i := range tables {
		index[tables[i].Name] = &tables[i]
	}

	viaOf := func(source, target string) (string, bool) {
		t, ok := index[source]
		if !ok {
			return "", false
		}
		j, ok := t.Join(target)
		if !ok || j.Via == "" {
			return "", false
		}
		return j.Via, true
	}

	graph := make(dependencyGraph)
	for _, t := range tables {
		for _, j := range t.Joins {
			if j.Via == "" {
				continue
			}
			from := edge(t.Name, j.Target)
			if graph[from] == nil {
				graph[from] = []string{}
			}
			for _, hop := range [][2]string{{t.Name, j.Via}, {j.Via, j.Target}} {
				if _, ok := viaOf(hop[0], hop[1]); ok {
					graph[from] = append(graph[from], edge(hop[0], hop[1]))
				}
			}
		}
	}
	return graph
}

const (
	unvisited = iota
	onPath
	done
)

// findCycles walks graph depth first from each relationship in sorted order
// and returns every distinct cycle, without the closing repeat.
func findCycles(graph dependencyGraph) [][]string {
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	state := make(map[string]int, len(graph))
	seen := make(map[string]bool)
	var (
		path   []string
		cycles [][]string
	)

	var walk func(string)
	walk = func(v string) {
		state[v] = onPath
		path = append(path, v)
		for _, w := range graph[v] {
			switch state[w] {
			case unvisited:
				walk(w)
			case onPath:
				cycle := rotateToSmallest(path[slices.Index(path, w):])
				if key := strings.Join(cycle, " "); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		path = path[:len(path)-1]
		state[v] = done
	}

	for _, node := range nodes {
		if state[node] == unvisited {
			walk(node)
		}
	}
	return cycles
}

// rotateToSmallest returns a copy of cycle starting at its smallest member.
func rotateToSmallest(cycle []string) []string {
	start := 0
	for i, node := range cycle {
		if node < cycle[start] {
			start = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[start:]...)
	return append(out, cycle[:start]...)
}

// cycleWarning closes cycle back on its first relationship.
func cycleWarning(cycle []string) CycleWarning {
	path := append(slices.Clone(cycle), cycle[0])
	if len(cycle) == 1 {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("via relationship %s expands into itself", cycle[0]),
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("via relationships expand in a cycle: %s", strings.Join(path, " => ")),
	}
}
