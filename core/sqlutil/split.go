package sqlutil

import (
	"strings"
)

// StripComments removes "--" line comments and "/* */" block comments that
// appear outside of string literals and quoted identifiers.
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if quote != 0 {
			b.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			if i < len(sql) {
				b.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}

// SplitSQLStatements splits a script on semicolons that are not inside string
// literals or quoted identifiers. Empty statements are dropped and the
// terminating semicolon is not included.
func SplitSQLStatements(sql string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			current.WriteByte(ch)
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			current.WriteByte(ch)
		case ch == ';':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return statements
}
