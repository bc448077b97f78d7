package joins

import "fmt"

// aliasTable counts how often each alias candidate has been used in one query.
// Values are never mutated in place: assign returns the updated table.
type aliasTable map[string]int

func newAliasTable(root string) aliasTable {
	return aliasTable{root: 1}
}

// assign returns a collision-free alias for candidate and the updated table.
// The first use keeps the candidate; later uses get candidate_N with N the
// running count, skipping any string already taken.
func (t aliasTable) assign(candidate string) (string, aliasTable) {
	next := make(aliasTable, len(t)+2)
	for k, v := range t {
		next[k] = v
	}

	n := next[candidate]
	if n == 0 {
		next[candidate] = 1
		return candidate, next
	}

	var alias string
	for {
		n++
		alias = fmt.Sprintf("%s_%d", candidate, n)
		if next[alias] == 0 {
			break
		}
	}
	next[candidate] = n
	next[alias] = 1
	return alias, next
}
