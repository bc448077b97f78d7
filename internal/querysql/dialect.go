package querysql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Dialect describes how identifiers and string literals are written for one
// SQL flavour.
type Dialect struct {
	Name     string
	Quote    string // Opening identifier quote
	QuoteEnd string // Closing identifier quote; doubled when it appears inside a name

	// BackslashEscapes is set when a backslash inside a string literal
	// escapes the next character, as in MySQL's default sql_mode.
	BackslashEscapes bool
}

var (
	ANSI     = Dialect{Name: "ansi", Quote: `"`, QuoteEnd: `"`}
	Postgres = Dialect{Name: "postgres", Quote: `"`, QuoteEnd: `"`}
	SQLite   = Dialect{Name: "sqlite", Quote: `"`, QuoteEnd: `"`}
	MySQL    = Dialect{Name: "mysql", Quote: "`", QuoteEnd: "`", BackslashEscapes: true}
	MSSQL    = Dialect{Name: "mssql", Quote: "[", QuoteEnd: "]"}
)

var dialects = map[string]Dialect{
	ANSI.Name:     ANSI,
	Postgres.Name: Postgres,
	SQLite.Name:   SQLite,
	MySQL.Name:    MySQL,
	MSSQL.Name:    MSSQL,
}

// DialectByName returns the named dialect. The empty name is ANSI.
func DialectByName(name string) (Dialect, error) {
	if name == "" {
		return ANSI, nil
	}
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unknown dialect %q (known: %s)", name, strings.Join(DialectNames(), ", "))
	}
	return d, nil
}

// DialectNames lists the known dialect names, sorted.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var simpleIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds keywords that cannot appear as bare identifiers in any
// supported dialect.
var reserved = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true, "BY": true,
	"CASE": true, "CHECK": true, "COLUMN": true, "CREATE": true, "CROSS": true,
	"DEFAULT": true, "DELETE": true, "DESC": true, "DISTINCT": true, "DROP": true,
	"ELSE": true, "END": true, "EXISTS": true, "FALSE": true, "FROM": true, "FULL": true,
	"GROUP": true, "HAVING": true, "IN": true, "INDEX": true, "INNER": true, "INSERT": true,
	"IS": true, "JOIN": true, "KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true,
	"NOT": true, "NULL": true, "ON": true, "OR": true, "ORDER": true, "OUTER": true,
	"PRIMARY": true, "REFERENCES": true, "RIGHT": true, "SELECT": true, "SET": true,
	"TABLE": true, "THEN": true, "TO": true, "TRUE": true, "UNION": true, "UNIQUE": true,
	"UPDATE": true, "USER": true, "USING": true, "VALUES": true, "WHEN": true, "WHERE": true,
	"WITH": true,
}

// QuoteIdent returns name bare when it is a plain identifier, quoted otherwise.
func (d Dialect) QuoteIdent(name string) string {
	if simpleIdent.MatchString(name) && !reserved[strings.ToUpper(name)] {
		return name
	}
	return d.Quote + strings.ReplaceAll(name, d.QuoteEnd, d.QuoteEnd+d.QuoteEnd) + d.QuoteEnd
}

// QuoteString returns s as a single-quoted string literal.
func (d Dialect) QuoteString(s string) string {
	if d.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
