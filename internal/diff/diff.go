// Package diff computes the structural delta between two database schemas.
//
// Compare is a pure function: it never mutates its inputs and is total over
// any pair of schemas, including empty ones. All lists in the result are
// sorted so that output is reproducible regardless of declaration order in
// the sources.
package diff

import (
	"sort"

	"github.com/dverney/dumpdiff/internal/schema"
)

// Change carries the before/after values of one string-valued field.
type Change struct {
	Old string
	New string
}

// NullableChange carries a nullability flip.
type NullableChange struct {
	Old bool
	New bool
}

// DefaultChange carries a default-value change. A nil side means the column
// has no DEFAULT clause at all, which is distinct from DEFAULT NULL.
type DefaultChange struct {
	Old *string
	New *string
}

// ColumnDiff describes a column present in both tables with at least one
// differing field. Fields that match are nil and omitted from reports.
type ColumnDiff struct {
	Name     string
	Type     *Change
	Nullable *NullableChange
	Default  *DefaultChange
}

// TableDiff describes every divergence found in one table present in both
// schemas.
type TableDiff struct {
	Name               string
	Charset            *Change
	Collation          *Change
	RemovedColumns     []string
	AddedColumns       []*schema.Column
	ModifiedColumns    []ColumnDiff
	RemovedConstraints []*schema.Constraint
	AddedConstraints   []*schema.Constraint
}

// Empty reports whether the table has no differences at all.
func (d *TableDiff) Empty() bool {
	return d.Charset == nil && d.Collation == nil &&
		len(d.RemovedColumns) == 0 && len(d.AddedColumns) == 0 &&
		len(d.ModifiedColumns) == 0 &&
		len(d.RemovedConstraints) == 0 && len(d.AddedConstraints) == 0
}

// Result is the structured output of a comparison, prior to rendering.
// OnlyInFirst and OnlyInSecond are sorted table names; Tables holds the
// non-empty per-table diffs in sorted name order.
type Result struct {
	OnlyInFirst  []string
	OnlyInSecond []string
	Tables       []TableDiff
}

// Empty reports whether the two schemas are structurally identical.
func (r *Result) Empty() bool {
	return len(r.OnlyInFirst) == 0 && len(r.OnlyInSecond) == 0 && len(r.Tables) == 0
}

// Compare computes the structural diff between two schemas. The first schema
// is the reference: tables and columns present only there are "removed",
// those present only in the second are "added".
func Compare(first, second *schema.Schema) *Result {
	res := &Result{}
	var common []string
	for name := range first.Tables {
		if _, ok := second.Tables[name]; ok {
			common = append(common, name)
		} else {
			res.OnlyInFirst = append(res.OnlyInFirst, name)
		}
	}
	for name := range second.Tables {
		if _, ok := first.Tables[name]; !ok {
			res.OnlyInSecond = append(res.OnlyInSecond, name)
		}
	}
	sort.Strings(res.OnlyInFirst)
	sort.Strings(res.OnlyInSecond)
	sort.Strings(common)

	for _, name := range common {
		d := compareTables(first.Tables[name], second.Tables[name])
		if !d.Empty() {
			res.Tables = append(res.Tables, d)
		}
	}
	return res
}

func compareTables(first, second *schema.Table) TableDiff {
	d := TableDiff{Name: first.Name}
	if first.Charset != second.Charset {
		d.Charset = &Change{Old: first.Charset, New: second.Charset}
	}
	if first.Collation != second.Collation {
		d.Collation = &Change{Old: first.Collation, New: second.Collation}
	}
	compareColumns(&d, first, second)
	compareConstraints(&d, first, second)
	return d
}

// compareColumns matches columns by name. Ordinal position is never
// compared: a column moved within the table is not a difference.
func compareColumns(d *TableDiff, first, second *schema.Table) {
	for _, col := range first.Columns {
		other := second.Column(col.Name)
		if other == nil {
			d.RemovedColumns = append(d.RemovedColumns, col.Name)
			continue
		}
		if cd := compareColumn(col, other); cd != nil {
			d.ModifiedColumns = append(d.ModifiedColumns, *cd)
		}
	}
	for _, col := range second.Columns {
		if first.Column(col.Name) == nil {
			d.AddedColumns = append(d.AddedColumns, col)
		}
	}
	sort.Strings(d.RemovedColumns)
	sort.Slice(d.AddedColumns, func(i, j int) bool {
		return d.AddedColumns[i].Name < d.AddedColumns[j].Name
	})
	sort.Slice(d.ModifiedColumns, func(i, j int) bool {
		return d.ModifiedColumns[i].Name < d.ModifiedColumns[j].Name
	})
}

// compareColumn compares type, nullability and default independently and
// returns nil when all three match.
func compareColumn(first, second *schema.Column) *ColumnDiff {
	cd := ColumnDiff{Name: first.Name}
	if first.Type != second.Type {
		cd.Type = &Change{Old: first.Type, New: second.Type}
	}
	if first.Nullable != second.Nullable {
		cd.Nullable = &NullableChange{Old: first.Nullable, New: second.Nullable}
	}
	if !sameDefault(first.Default, second.Default) {
		cd.Default = &DefaultChange{Old: first.Default, New: second.Default}
	}
	if cd.Type == nil && cd.Nullable == nil && cd.Default == nil {
		return nil
	}
	return &cd
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// compareConstraints matches constraints by identity (kind, name).
// Constraints present on both sides are treated as unchanged even when their
// covered columns or foreign-key target differ; content is not deep-compared.
func compareConstraints(d *TableDiff, first, second *schema.Table) {
	firstKeys := make(map[schema.ConstraintKey]bool, len(first.Constraints))
	secondKeys := make(map[schema.ConstraintKey]bool, len(second.Constraints))
	for _, con := range first.Constraints {
		firstKeys[con.Key()] = true
	}
	for _, con := range second.Constraints {
		secondKeys[con.Key()] = true
	}
	for _, con := range first.Constraints {
		if !secondKeys[con.Key()] {
			d.RemovedConstraints = append(d.RemovedConstraints, con)
		}
	}
	for _, con := range second.Constraints {
		if !firstKeys[con.Key()] {
			d.AddedConstraints = append(d.AddedConstraints, con)
		}
	}
	sortConstraints(d.RemovedConstraints)
	sortConstraints(d.AddedConstraints)
}

// sortConstraints orders by identity: kind first, then name.
func sortConstraints(cons []*schema.Constraint) {
	sort.Slice(cons, func(i, j int) bool {
		if cons[i].Kind != cons[j].Kind {
			return cons[i].Kind < cons[j].Kind
		}
		return cons[i].Name < cons[j].Name
	})
}
