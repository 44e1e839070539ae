package dump

import "strings"

// Low-level scanning helpers for dump text. Everything here is quote-aware:
// single-quoted and double-quoted strings and backtick identifiers must never
// be split or stripped, whatever they contain.

// skipQuoted returns the index just past a quoted region starting at s[i],
// where s[i] is one of ', " or `. Backslash escapes are honored inside string
// literals, and a doubled quote character escapes itself in all three forms.
func skipQuoted(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) {
		switch {
		case s[i] == '\\' && quote != '`' && i+1 < len(s):
			i += 2
		case s[i] == quote:
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return i
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

// stripComments removes -- line comments and /* */ block comments (including
// mysqldump's /*!NNNNN ... */ conditional form). Quoted regions pass through
// untouched. Block comments become a single space so surrounding tokens do
// not merge; line comments keep their terminating newline.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isQuote(c):
			end := skipQuoted(s, i)
			b.WriteString(s[i:end])
			i = end
		case c == '-' && strings.HasPrefix(s[i:], "--"):
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
				break
			}
			b.WriteByte(' ')
			i += 2 + end + 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// splitStatements splits dump text on semicolons outside quoted regions.
// Empty statements are dropped.
func splitStatements(s string) []string {
	var stmts []string
	start := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipQuoted(s, i)
		case c == ';':
			if stmt := strings.TrimSpace(s[start:i]); stmt != "" {
				stmts = append(stmts, stmt)
			}
			i++
			start = i
		default:
			i++
		}
	}
	if stmt := strings.TrimSpace(s[start:]); stmt != "" {
		stmts = append(stmts, stmt)
	}
	return stmts
}

// splitClauses splits a CREATE TABLE body into its top-level clauses: commas
// nested inside parentheses (enum literals, column lists, decimal(10,2))
// do not split.
func splitClauses(body string) []string {
	var clauses []string
	depth := 0
	start := 0
	i := 0
	for i < len(body) {
		c := body[i]
		switch {
		case isQuote(c):
			i = skipQuoted(body, i)
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case c == ',' && depth == 0:
			if cl := strings.TrimSpace(body[start:i]); cl != "" {
				clauses = append(clauses, cl)
			}
			i++
			start = i
		default:
			i++
		}
	}
	if cl := strings.TrimSpace(body[start:]); cl != "" {
		clauses = append(clauses, cl)
	}
	return clauses
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '$'
}

// readIdent reads one identifier, backtick-quoted or bare, from the start of
// s (leading whitespace ignored) and returns it with the remaining text.
func readIdent(s string) (name, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return "", "", false
	}
	if s[0] == '`' {
		end := skipQuoted(s, 0)
		inner := s[1 : end-1]
		inner = strings.ReplaceAll(inner, "``", "`")
		if inner == "" {
			return "", "", false
		}
		return inner, s[end:], true
	}
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	return s[:i], s[i:], true
}

// parenGroup reads a parenthesized group from the start of s (leading
// whitespace ignored) and returns the inner text and the remaining text
// after the matching closing parenthesis.
func parenGroup(s string) (inner, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || s[0] != '(' {
		return "", "", false
	}
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipQuoted(s, i)
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
			if depth == 0 {
				return s[1 : i-1], s[i:], true
			}
		default:
			i++
		}
	}
	return "", "", false
}

// typeToken reads a type expression from the start of s: everything up to
// the first whitespace at parenthesis depth 0 outside quotes. This keeps
// enum('a b','c') and decimal(10,2) whole.
func typeToken(s string) (typ, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipQuoted(s, i)
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case depth == 0 && (c == ' ' || c == '\t' || c == '\r' || c == '\n'):
			return s[:i], s[i:]
		default:
			i++
		}
	}
	return s, ""
}

// splitColumnList parses a constraint column list: backticks stripped,
// optional index prefix lengths (`name`(10)) dropped.
func splitColumnList(inner string) []string {
	var cols []string
	for _, part := range splitClauses(inner) {
		name, _, ok := readIdent(part)
		if !ok {
			name = strings.Trim(part, "` ")
		}
		if name != "" {
			cols = append(cols, name)
		}
	}
	return cols
}

// hasKeyword reports whether s starts with the given space-separated
// keywords, case-insensitively and on word boundaries.
func hasKeyword(s string, keywords ...string) bool {
	_, ok := cutKeyword(s, keywords...)
	return ok
}

// cutKeyword strips the given leading keywords from s. It returns the
// remainder and whether all keywords matched.
func cutKeyword(s string, keywords ...string) (rest string, ok bool) {
	rest = s
	for _, kw := range keywords {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if len(rest) < len(kw) || !strings.EqualFold(rest[:len(kw)], kw) {
			return s, false
		}
		if len(rest) > len(kw) && isIdentChar(rest[len(kw)]) {
			return s, false
		}
		rest = rest[len(kw):]
	}
	return rest, true
}
