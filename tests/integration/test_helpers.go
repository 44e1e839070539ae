//go:build integration
// +build integration

package integration

import (
	"testing"

	"github.com/dverney/dumpdiff/internal/schema"
)

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d (%v)", len(expectedTables), len(s.Tables), s.TableNames())
	}

	for _, tableName := range expectedTables {
		if s.Tables[tableName] == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if table.Column(colName) == nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has a PRIMARY KEY constraint on the
// expected columns and that those columns are not nullable
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	pk := findConstraint(table, schema.PrimaryKey, "PRIMARY")
	if pk == nil {
		t.Errorf("Table %s has no primary key constraint", table.Name)
		return
	}
	if !sameColumns(pk.Columns, expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, pk.Columns)
		return
	}
	for _, name := range expectedPK {
		if col := table.Column(name); col != nil && col.Nullable {
			t.Errorf("Primary key column %s should not be nullable", name)
		}
	}
}

// verifyUniqueConstraint checks that a unique constraint covers exactly the column
func verifyUniqueConstraint(t *testing.T, s *schema.Schema, tableName, columnName string) {
	t.Helper()

	table := s.Tables[tableName]
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, con := range table.Constraints {
		if con.Kind == schema.Unique && sameColumns(con.Columns, []string{columnName}) {
			return
		}
	}

	t.Errorf("Expected unique constraint on %s.%s not found", tableName, columnName)
}

// verifyForeignKey checks that a foreign key from sourceColumn to targetTable exists
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable string) {
	t.Helper()

	table := s.Tables[tableName]
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, con := range table.Constraints {
		if con.Kind != schema.ForeignKey || con.RefTable != targetTable {
			continue
		}
		for _, col := range con.Columns {
			if col == sourceColumn {
				return
			}
		}
	}

	t.Errorf("Expected foreign key from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index constraint exists with the expected columns
func verifyIndex(t *testing.T, s *schema.Schema, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := s.Tables[tableName]
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	idx := findConstraint(table, schema.Index, indexName)
	if idx == nil {
		idx = findConstraint(table, schema.Unique, indexName)
	}
	if idx == nil {
		t.Errorf("Expected index %s on %s table not found", indexName, tableName)
		return
	}
	if !sameColumns(idx.Columns, expectedColumns) {
		t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
	}
}

func findConstraint(table *schema.Table, kind schema.ConstraintKind, name string) *schema.Constraint {
	for _, con := range table.Constraints {
		if con.Kind == kind && con.Name == name {
			return con
		}
	}
	return nil
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
