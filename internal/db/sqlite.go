package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dverney/dumpdiff/internal/schema"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient creates a new SQLite client
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// SQLiteExtractor reads table structure out of a SQLite database file.
// SQLite has neither table charsets nor named foreign keys; foreign key
// constraints get synthetic fk_<table>_<n> names so they still carry a
// stable identity.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

// ExtractSchema extracts the structure of every table in the database.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.New()

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables[tableName] = table
	}

	return s, nil
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if err := e.extractIndexes(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	if err := e.extractForeignKeys(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}

	forcePrimaryKeyNotNull(table)
	return table, nil
}

// extractColumns reads columns and the primary key from PRAGMA table_info.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, table *schema.Table) error {
	query := fmt.Sprintf("PRAGMA table_info(%q)", table.Name)

	rows, err := e.client.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	// pk reports the 1-based position of the column within the primary key.
	pkOrder := make(map[int]string)
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}

		col := &schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
			Position: cid + 1,
		}
		if defaultValue.Valid {
			v := defaultValue.String
			col.Default = &v
		}
		table.Columns = append(table.Columns, col)

		if pk > 0 {
			pkOrder[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(pkOrder) > 0 {
		cols := make([]string, 0, len(pkOrder))
		for i := 1; i <= len(pkOrder); i++ {
			if name, ok := pkOrder[i]; ok {
				cols = append(cols, name)
			}
		}
		table.AddConstraint(&schema.Constraint{
			Kind:    schema.PrimaryKey,
			Name:    "PRIMARY",
			Columns: cols,
		})
	}
	return nil
}

// extractIndexes reads unique and plain indexes from PRAGMA index_list,
// skipping the internal indexes SQLite creates for primary keys and unique
// column constraints.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, table *schema.Table) error {
	query := fmt.Sprintf("PRAGMA index_list(%q)", table.Name)

	rows, err := e.client.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		if strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, entry := range entries {
		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			continue
		}
		kind := schema.Index
		if entry.unique {
			kind = schema.Unique
		}
		table.AddConstraint(&schema.Constraint{Kind: kind, Name: entry.name, Columns: columns})
	}
	return nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%q)", indexName)

	rows, err := e.client.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, table *schema.Table) error {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%q)", table.Name)

	rows, err := e.client.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	// One row per covered column; rows of the same id form one constraint.
	byID := make(map[int]*schema.Constraint)
	var order []int
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol string
		var toCol sql.NullString
		var onUpdate, onDelete, match string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return err
		}

		con, ok := byID[id]
		if !ok {
			con = &schema.Constraint{
				Kind:     schema.ForeignKey,
				Name:     fmt.Sprintf("fk_%s_%d", table.Name, id+1),
				RefTable: targetTable,
			}
			byID[id] = con
			order = append(order, id)
		}
		con.Columns = append(con.Columns, fromCol)
		if toCol.Valid {
			con.RefColumns = append(con.RefColumns, toCol.String)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		table.AddConstraint(byID[id])
	}
	return nil
}
