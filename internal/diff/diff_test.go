package diff

import (
	"reflect"
	"testing"

	"github.com/dverney/dumpdiff/internal/schema"
)

func strPtr(s string) *string { return &s }

func schemaOf(tables ...*schema.Table) *schema.Schema {
	s := schema.New()
	for _, t := range tables {
		s.Tables[t.Name] = t
	}
	return s
}

func usersTable() *schema.Table {
	return &schema.Table{
		Name:      "users",
		Charset:   "utf8mb4",
		Collation: "utf8mb4_general_ci",
		Columns: []*schema.Column{
			{Name: "id", Type: "int", Nullable: false, Position: 1},
			{Name: "email", Type: "varchar(100)", Nullable: false, Position: 2},
			{Name: "name", Type: "varchar(100)", Nullable: true, Default: strPtr("NULL"), Position: 3},
		},
		Constraints: []*schema.Constraint{
			{Kind: schema.PrimaryKey, Name: "PRIMARY", Columns: []string{"id"}},
			{Kind: schema.Unique, Name: "idx_email", Columns: []string{"email"}},
		},
	}
}

func TestCompareIdenticalSchemas(t *testing.T) {
	a := schemaOf(usersTable())
	b := schemaOf(usersTable())

	res := Compare(a, b)
	if !res.Empty() {
		t.Errorf("self-diff should be empty, got %+v", res)
	}
}

func TestCompareEmptySchemas(t *testing.T) {
	res := Compare(schema.New(), schema.New())
	if !res.Empty() {
		t.Errorf("comparing empty schemas should be empty, got %+v", res)
	}
}

func TestCompareExclusiveTables(t *testing.T) {
	a := schemaOf(
		&schema.Table{Name: "zeta"},
		&schema.Table{Name: "alpha"},
		&schema.Table{Name: "common"},
	)
	b := schemaOf(
		&schema.Table{Name: "common"},
		&schema.Table{Name: "beta"},
	)

	res := Compare(a, b)
	if !reflect.DeepEqual(res.OnlyInFirst, []string{"alpha", "zeta"}) {
		t.Errorf("OnlyInFirst = %v, want [alpha zeta] (sorted)", res.OnlyInFirst)
	}
	if !reflect.DeepEqual(res.OnlyInSecond, []string{"beta"}) {
		t.Errorf("OnlyInSecond = %v, want [beta]", res.OnlyInSecond)
	}
	if len(res.Tables) != 0 {
		t.Errorf("identical common table should produce no table diff, got %+v", res.Tables)
	}
}

func TestCompareCharsetAndCollation(t *testing.T) {
	a := usersTable()
	b := usersTable()
	b.Charset = "latin1"
	b.Collation = "latin1_swedish_ci"

	res := Compare(schemaOf(a), schemaOf(b))
	if len(res.Tables) != 1 {
		t.Fatalf("expected 1 table diff, got %d", len(res.Tables))
	}
	d := res.Tables[0]
	if d.Charset == nil || d.Charset.Old != "utf8mb4" || d.Charset.New != "latin1" {
		t.Errorf("charset change = %+v, want utf8mb4 -> latin1", d.Charset)
	}
	if d.Collation == nil || d.Collation.Old != "utf8mb4_general_ci" || d.Collation.New != "latin1_swedish_ci" {
		t.Errorf("collation change = %+v, want utf8mb4_general_ci -> latin1_swedish_ci", d.Collation)
	}
}

func TestCompareBothCollationsAbsent(t *testing.T) {
	a := usersTable()
	b := usersTable()
	a.Charset, a.Collation = "", ""
	b.Charset, b.Collation = "", ""

	res := Compare(schemaOf(a), schemaOf(b))
	if !res.Empty() {
		t.Errorf("absent collation on both sides is not a difference, got %+v", res)
	}
}

func TestCompareColumns(t *testing.T) {
	a := usersTable()
	b := usersTable()

	// removed: name; added: age; modified: email (type and nullability)
	b.Columns = []*schema.Column{
		{Name: "id", Type: "int", Nullable: false, Position: 1},
		{Name: "email", Type: "varchar(255)", Nullable: true, Position: 2},
		{Name: "age", Type: "int", Nullable: true, Position: 3},
	}

	res := Compare(schemaOf(a), schemaOf(b))
	if len(res.Tables) != 1 {
		t.Fatalf("expected 1 table diff, got %d", len(res.Tables))
	}
	d := res.Tables[0]

	if !reflect.DeepEqual(d.RemovedColumns, []string{"name"}) {
		t.Errorf("RemovedColumns = %v, want [name]", d.RemovedColumns)
	}
	if len(d.AddedColumns) != 1 || d.AddedColumns[0].Name != "age" || d.AddedColumns[0].Type != "int" {
		t.Errorf("AddedColumns = %+v, want [age int]", d.AddedColumns)
	}
	if len(d.ModifiedColumns) != 1 {
		t.Fatalf("ModifiedColumns = %+v, want exactly email", d.ModifiedColumns)
	}
	cd := d.ModifiedColumns[0]
	if cd.Name != "email" {
		t.Fatalf("modified column = %s, want email", cd.Name)
	}
	if cd.Type == nil || cd.Type.Old != "varchar(100)" || cd.Type.New != "varchar(255)" {
		t.Errorf("type change = %+v, want varchar(100) -> varchar(255)", cd.Type)
	}
	if cd.Nullable == nil || cd.Nullable.Old != false || cd.Nullable.New != true {
		t.Errorf("nullable change = %+v, want NOT NULL -> NULL", cd.Nullable)
	}
	if cd.Default != nil {
		t.Errorf("default did not change, got %+v", cd.Default)
	}
}

func TestCompareDefaultSentinel(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *string
		wantDiff bool
	}{
		{name: "both absent", a: nil, b: nil, wantDiff: false},
		{name: "absent vs explicit NULL", a: nil, b: strPtr("NULL"), wantDiff: true},
		{name: "explicit NULL both sides", a: strPtr("NULL"), b: strPtr("NULL"), wantDiff: false},
		{name: "empty string vs absent", a: strPtr("''"), b: nil, wantDiff: true},
		{name: "same literal", a: strPtr("'x'"), b: strPtr("'x'"), wantDiff: false},
		{name: "different literals", a: strPtr("'x'"), b: strPtr("'y'"), wantDiff: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &schema.Table{Name: "t", Columns: []*schema.Column{
				{Name: "c", Type: "int", Nullable: true, Default: tt.a},
			}}
			b := &schema.Table{Name: "t", Columns: []*schema.Column{
				{Name: "c", Type: "int", Nullable: true, Default: tt.b},
			}}
			res := Compare(schemaOf(a), schemaOf(b))
			if tt.wantDiff == res.Empty() {
				t.Errorf("wantDiff=%v but result empty=%v", tt.wantDiff, res.Empty())
			}
		})
	}
}

func TestCompareIgnoresOrdinalPosition(t *testing.T) {
	a := usersTable()
	b := usersTable()
	// Same columns declared in a different order.
	b.Columns = []*schema.Column{b.Columns[2], b.Columns[0], b.Columns[1]}
	for i, col := range b.Columns {
		col.Position = i + 1
	}

	res := Compare(schemaOf(a), schemaOf(b))
	if !res.Empty() {
		t.Errorf("column order must not matter, got %+v", res)
	}
}

func TestCompareConstraintsByIdentity(t *testing.T) {
	a := usersTable()
	b := usersTable()

	// Same identity, different covered columns: treated as unchanged.
	b.Constraints = []*schema.Constraint{
		{Kind: schema.PrimaryKey, Name: "PRIMARY", Columns: []string{"id", "email"}},
		{Kind: schema.Unique, Name: "idx_email", Columns: []string{"email", "name"}},
	}
	res := Compare(schemaOf(a), schemaOf(b))
	if !res.Empty() {
		t.Errorf("matching (kind, name) identities are never reported, got %+v", res)
	}
}

func TestCompareConstraintKindIsPartOfIdentity(t *testing.T) {
	a := usersTable()
	b := usersTable()
	// idx_email flips from UNIQUE to INDEX: same name, different kind.
	b.Constraints = []*schema.Constraint{
		{Kind: schema.PrimaryKey, Name: "PRIMARY", Columns: []string{"id"}},
		{Kind: schema.Index, Name: "idx_email", Columns: []string{"email"}},
	}

	res := Compare(schemaOf(a), schemaOf(b))
	if len(res.Tables) != 1 {
		t.Fatalf("expected 1 table diff, got %d", len(res.Tables))
	}
	d := res.Tables[0]
	if len(d.RemovedConstraints) != 1 || d.RemovedConstraints[0].Kind != schema.Unique {
		t.Errorf("RemovedConstraints = %+v, want the UNIQUE idx_email", d.RemovedConstraints)
	}
	if len(d.AddedConstraints) != 1 || d.AddedConstraints[0].Kind != schema.Index {
		t.Errorf("AddedConstraints = %+v, want the INDEX idx_email", d.AddedConstraints)
	}
}

func TestCompareConstraintOrdering(t *testing.T) {
	a := &schema.Table{Name: "t"}
	b := &schema.Table{
		Name: "t",
		Constraints: []*schema.Constraint{
			{Kind: schema.Index, Name: "zz", Columns: []string{"a"}},
			{Kind: schema.Index, Name: "aa", Columns: []string{"a"}},
			{Kind: schema.ForeignKey, Name: "mm", Columns: []string{"a"}, RefTable: "o", RefColumns: []string{"id"}},
		},
	}

	res := Compare(schemaOf(a), schemaOf(b))
	if len(res.Tables) != 1 {
		t.Fatalf("expected 1 table diff, got %d", len(res.Tables))
	}
	var got []schema.ConstraintKey
	for _, con := range res.Tables[0].AddedConstraints {
		got = append(got, con.Key())
	}
	want := []schema.ConstraintKey{
		{Kind: schema.ForeignKey, Name: "mm"},
		{Kind: schema.Index, Name: "aa"},
		{Kind: schema.Index, Name: "zz"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("added constraints order = %v, want %v", got, want)
	}
}

func TestCompareSymmetry(t *testing.T) {
	a := schemaOf(usersTable(), &schema.Table{Name: "only_a"})
	modified := usersTable()
	modified.Columns[1].Type = "varchar(255)"
	modified.Columns = modified.Columns[:2] // drop "name"
	b := schemaOf(modified, &schema.Table{Name: "only_b"})

	ab := Compare(a, b)
	ba := Compare(b, a)

	if !reflect.DeepEqual(ab.OnlyInFirst, ba.OnlyInSecond) || !reflect.DeepEqual(ab.OnlyInSecond, ba.OnlyInFirst) {
		t.Errorf("exclusive tables not mirrored: %v/%v vs %v/%v",
			ab.OnlyInFirst, ab.OnlyInSecond, ba.OnlyInFirst, ba.OnlyInSecond)
	}

	if len(ab.Tables) != 1 || len(ba.Tables) != 1 {
		t.Fatalf("expected one table diff each way, got %d and %d", len(ab.Tables), len(ba.Tables))
	}
	dab, dba := ab.Tables[0], ba.Tables[0]
	if !reflect.DeepEqual(dab.RemovedColumns, []string{"name"}) || !reflect.DeepEqual(dba.AddedColumns[0].Name, "name") {
		t.Errorf("removed/added columns not mirrored: %v vs %+v", dab.RemovedColumns, dba.AddedColumns)
	}
	mab, mba := dab.ModifiedColumns[0], dba.ModifiedColumns[0]
	if mab.Type.Old != mba.Type.New || mab.Type.New != mba.Type.Old {
		t.Errorf("type change not mirrored: %+v vs %+v", mab.Type, mba.Type)
	}
}
