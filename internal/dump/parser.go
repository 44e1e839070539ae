// Package dump parses structure-only SQL dumps into the normalized schema
// model, and provides dump-level utilities (table listing, data stripping).
//
// The parser is deliberately forgiving: dump text is semi-structured, so a
// clause or statement that cannot be understood is skipped rather than
// failing the whole parse. Parse always returns a schema, possibly partial.
package dump

import (
	"strings"

	"github.com/dverney/dumpdiff/internal/schema"
)

// Parser converts raw dump text into a schema.Schema.
//
// Warnf, when set, receives one message per skipped clause or statement.
// It is typically wired to stderr in verbose mode and left nil otherwise.
type Parser struct {
	Warnf func(format string, args ...any)
}

// NewParser returns a parser with no warning hook.
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) warnf(format string, args ...any) {
	if p.Warnf != nil {
		p.Warnf(format, args...)
	}
}

// Parse extracts the structure declared by every CREATE TABLE statement in
// text. Comments and non-structural statements (INSERT, LOCK TABLES, SET...)
// are ignored. Parse never fails; malformed input degrades to partial
// extraction.
func (p *Parser) Parse(text string) *schema.Schema {
	s := schema.New()
	for _, stmt := range splitStatements(stripComments(text)) {
		rest, ok := cutKeyword(stmt, "CREATE", "TABLE")
		if !ok {
			continue
		}
		if r, ok := cutKeyword(rest, "IF", "NOT", "EXISTS"); ok {
			rest = r
		}
		table, ok := p.parseCreateTable(rest)
		if !ok {
			continue
		}
		s.Tables[table.Name] = table
	}
	return s
}

// parseCreateTable parses everything after "CREATE TABLE": the table name,
// the parenthesized body and the trailing table options.
func (p *Parser) parseCreateTable(stmt string) (*schema.Table, bool) {
	name, rest, ok := readIdent(stmt)
	if !ok {
		p.warnf("statement skipped: no table name in %q", firstLine(stmt))
		return nil, false
	}
	body, options, ok := parenGroup(rest)
	if !ok {
		p.warnf("table %s skipped: no column list", name)
		return nil, false
	}

	table := &schema.Table{Name: name}
	for _, clause := range splitClauses(body) {
		p.parseClause(table, clause)
	}
	parseTableOptions(table, options)

	// Primary key membership implies NOT NULL even when the column
	// definition does not say so.
	for _, con := range table.Constraints {
		if con.Kind != schema.PrimaryKey {
			continue
		}
		for _, colName := range con.Columns {
			if col := table.Column(colName); col != nil {
				col.Nullable = false
			}
		}
	}
	return table, true
}

// parseClause classifies one top-level clause of a table body as a column
// definition or a constraint, and records it on the table. Unrecognized
// clauses (CHECK, FULLTEXT KEY...) are skipped.
func (p *Parser) parseClause(table *schema.Table, clause string) {
	switch {
	case hasKeyword(clause, "PRIMARY", "KEY"):
		rest, _ := cutKeyword(clause, "PRIMARY", "KEY")
		p.parseKeyClause(table, schema.PrimaryKey, rest)
	case hasKeyword(clause, "UNIQUE", "KEY"):
		rest, _ := cutKeyword(clause, "UNIQUE", "KEY")
		p.parseKeyClause(table, schema.Unique, rest)
	case hasKeyword(clause, "UNIQUE"):
		rest, _ := cutKeyword(clause, "UNIQUE")
		p.parseKeyClause(table, schema.Unique, rest)
	case hasKeyword(clause, "KEY"):
		rest, _ := cutKeyword(clause, "KEY")
		p.parseKeyClause(table, schema.Index, rest)
	case hasKeyword(clause, "INDEX"):
		rest, _ := cutKeyword(clause, "INDEX")
		p.parseKeyClause(table, schema.Index, rest)
	case hasKeyword(clause, "CONSTRAINT"), hasKeyword(clause, "FOREIGN", "KEY"):
		p.parseForeignKeyClause(table, clause)
	case hasKeyword(clause, "CHECK"), hasKeyword(clause, "FULLTEXT"), hasKeyword(clause, "SPATIAL"):
		p.warnf("table %s: clause skipped: %q", table.Name, firstLine(clause))
	default:
		p.parseColumnClause(table, clause)
	}
}

// parseKeyClause handles PRIMARY KEY, UNIQUE [KEY] and KEY/INDEX clauses.
// An unnamed PRIMARY KEY is named PRIMARY; an unnamed index gets the MySQL
// convention name, its first covered column.
func (p *Parser) parseKeyClause(table *schema.Table, kind schema.ConstraintKind, rest string) {
	var name string
	if kind != schema.PrimaryKey {
		if n, r, ok := readIdent(rest); ok {
			name, rest = n, r
		}
	}
	inner, _, ok := parenGroup(rest)
	if !ok {
		p.warnf("table %s: %s clause skipped: no column list", table.Name, kind)
		return
	}
	cols := splitColumnList(inner)
	if len(cols) == 0 {
		p.warnf("table %s: %s clause skipped: empty column list", table.Name, kind)
		return
	}
	switch {
	case kind == schema.PrimaryKey:
		name = "PRIMARY"
	case name == "":
		name = cols[0]
	}
	table.AddConstraint(&schema.Constraint{Kind: kind, Name: name, Columns: cols})
}

// parseForeignKeyClause handles CONSTRAINT `x` FOREIGN KEY (...) REFERENCES
// `t` (...) as well as the bare FOREIGN KEY form. CONSTRAINT clauses that do
// not turn out to be foreign keys are skipped.
func (p *Parser) parseForeignKeyClause(table *schema.Table, clause string) {
	rest := clause
	var name string
	if r, ok := cutKeyword(rest, "CONSTRAINT"); ok {
		n, r2, idOK := readIdent(r)
		if !idOK {
			p.warnf("table %s: clause skipped: %q", table.Name, firstLine(clause))
			return
		}
		name, rest = n, r2
	}
	rest, ok := cutKeyword(rest, "FOREIGN", "KEY")
	if !ok {
		p.warnf("table %s: clause skipped: %q", table.Name, firstLine(clause))
		return
	}
	inner, rest, ok := parenGroup(rest)
	if !ok {
		p.warnf("table %s: foreign key skipped: no column list", table.Name)
		return
	}
	cols := splitColumnList(inner)
	rest, ok = cutKeyword(rest, "REFERENCES")
	if !ok {
		p.warnf("table %s: foreign key skipped: no REFERENCES target", table.Name)
		return
	}
	refTable, rest, ok := readIdent(rest)
	if !ok {
		p.warnf("table %s: foreign key skipped: no referenced table", table.Name)
		return
	}
	refInner, _, ok := parenGroup(rest)
	if !ok {
		p.warnf("table %s: foreign key skipped: no referenced columns", table.Name)
		return
	}
	if len(cols) == 0 {
		p.warnf("table %s: foreign key skipped: empty column list", table.Name)
		return
	}
	if name == "" {
		name = cols[0]
	}
	table.AddConstraint(&schema.Constraint{
		Kind:       schema.ForeignKey,
		Name:       name,
		Columns:    cols,
		RefTable:   refTable,
		RefColumns: splitColumnList(refInner),
	})
}

// parseColumnClause handles a column definition: name, verbatim type
// expression, then attributes (NOT NULL, DEFAULT ...).
func (p *Parser) parseColumnClause(table *schema.Table, clause string) {
	name, rest, ok := readIdent(clause)
	if !ok {
		p.warnf("table %s: clause skipped: %q", table.Name, firstLine(clause))
		return
	}
	typ, attrs := typeToken(rest)
	if typ == "" {
		p.warnf("table %s: column %s skipped: no type", table.Name, name)
		return
	}
	col := &schema.Column{
		Name:     name,
		Type:     typ,
		Nullable: !containsKeyword(attrs, "NOT", "NULL"),
		Default:  defaultValue(attrs),
	}
	table.AddColumn(col)
}

// defaultValue extracts the literal following a DEFAULT keyword, verbatim
// (quoted literals keep their quotes). It returns nil when the column has no
// DEFAULT clause; an explicit DEFAULT NULL yields the string "NULL".
func defaultValue(attrs string) *string {
	rest, ok := findKeyword(attrs, "DEFAULT")
	if !ok {
		return nil
	}
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return nil
	}
	var value string
	if isQuote(rest[0]) {
		value = rest[:skipQuoted(rest, 0)]
	} else {
		value, _ = typeToken(rest)
	}
	if value == "" {
		return nil
	}
	return &value
}

// containsKeyword reports whether the keyword sequence occurs anywhere in s
// on word boundaries, outside quoted regions.
func containsKeyword(s string, keywords ...string) bool {
	_, ok := findKeyword(s, keywords...)
	return ok
}

// findKeyword scans s for the keyword sequence outside quoted regions and
// returns the text that follows it.
func findKeyword(s string, keywords ...string) (rest string, ok bool) {
	i := 0
	for i < len(s) {
		if isQuote(s[i]) {
			i = skipQuoted(s, i)
			continue
		}
		if isIdentChar(s[i]) && (i == 0 || !isIdentChar(s[i-1])) {
			if rest, ok := cutKeyword(s[i:], keywords...); ok {
				return rest, true
			}
		}
		i++
	}
	return "", false
}

// parseTableOptions scans the text after the closing parenthesis for
// ENGINE=, [DEFAULT] CHARSET= and COLLATE= options.
func parseTableOptions(table *schema.Table, options string) {
	for _, form := range []string{"DEFAULT CHARSET", "CHARSET", "CHARACTER SET"} {
		if v, ok := optionValue(options, form); ok {
			table.Charset = v
			break
		}
	}
	if v, ok := optionValue(options, "COLLATE"); ok {
		table.Collation = v
	}
}

// optionValue finds `KEY=value` (or `KEY = value`) in a table-options tail
// and returns the bare value.
func optionValue(options, key string) (string, bool) {
	rest, ok := findKeyword(options, strings.Fields(key)...)
	if !ok {
		return "", false
	}
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" || rest[0] != '=' {
		return "", false
	}
	value, _, ok := readIdent(rest[1:])
	return value, ok
}

// firstLine truncates a clause for warning messages.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
