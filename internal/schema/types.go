package schema

// ConstraintKind identifies the category of a table constraint. Values are
// the literal strings used in reports.
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PRIMARY KEY"
	Unique     ConstraintKind = "UNIQUE"
	Index      ConstraintKind = "INDEX"
	ForeignKey ConstraintKind = "FOREIGN KEY"
)

// Schema represents the structure of one database: table name to table.
// Built once per source, treated as immutable afterwards.
type Schema struct {
	Tables map[string]*Table
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{Tables: make(map[string]*Table)}
}

// TableNames returns the table names in map order. Callers that need a
// stable order sort the result themselves.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	return names
}

// Table represents a database table. Columns keep declaration order;
// Charset and Collation are empty when the source does not declare them.
type Table struct {
	Name        string
	Charset     string
	Collation   string
	Columns     []*Column
	Constraints []*Constraint
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddColumn appends a column, replacing any earlier declaration of the
// same name in place.
func (t *Table) AddColumn(col *Column) {
	for i, c := range t.Columns {
		if c.Name == col.Name {
			col.Position = c.Position
			t.Columns[i] = col
			return
		}
	}
	col.Position = len(t.Columns) + 1
	t.Columns = append(t.Columns, col)
}

// AddConstraint appends a constraint, replacing any earlier one with the
// same identity.
func (t *Table) AddConstraint(con *Constraint) {
	for i, c := range t.Constraints {
		if c.Kind == con.Kind && c.Name == con.Name {
			t.Constraints[i] = con
			return
		}
	}
	t.Constraints = append(t.Constraints, con)
}

// Column represents a table column.
//
// Type is the verbatim type expression from the source, including length,
// precision or enum literal (`varchar(255)`, `enum('a','b')`). Default is
// nil when the column has no DEFAULT clause at all; an explicit DEFAULT NULL
// is the string "NULL", which is a different state. Position is the ordinal
// position in the declaration, kept for information only.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  *string
	Position int
}

// Constraint represents a named rule attached to a table. Its identity for
// comparison purposes is (Kind, Name); RefTable and RefColumns are set for
// foreign keys only.
type Constraint struct {
	Kind       ConstraintKind
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// ConstraintKey is the identity of a constraint within its table.
type ConstraintKey struct {
	Kind ConstraintKind
	Name string
}

// Key returns the constraint's identity.
func (c *Constraint) Key() ConstraintKey {
	return ConstraintKey{Kind: c.Kind, Name: c.Name}
}
