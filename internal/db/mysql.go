package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dverney/dumpdiff/internal/schema"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// ParseDatabaseName extracts the database name from a MySQL DSN
// (user:pass@tcp(host:port)/dbname?params).
func ParseDatabaseName(connString string) (string, error) {
	slash := strings.LastIndexByte(connString, '/')
	if slash < 0 {
		return "", fmt.Errorf("no database name in connection string")
	}
	name := connString[slash+1:]
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	if name == "" {
		return "", fmt.Errorf("no database name in connection string")
	}
	return name, nil
}

// MySQLExtractor reads table structure out of a live MySQL database and
// builds the same schema model the dump parser produces, so live and parsed
// schemas can be diffed against each other.
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the structure of every base table in the schema.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
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

func (e *MySQLExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.db.QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	if err := e.extractTableOptions(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract table options: %w", err)
	}
	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if err := e.extractKeys(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract keys: %w", err)
	}
	if err := e.extractForeignKeys(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}

	forcePrimaryKeyNotNull(table)
	return table, nil
}

// extractTableOptions reads the table's collation and resolves its charset.
func (e *MySQLExtractor) extractTableOptions(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			COALESCE(t.table_collation, ''),
			COALESCE(ccsa.character_set_name, '')
		FROM information_schema.tables t
		LEFT JOIN information_schema.collation_character_set_applicability ccsa
			ON t.table_collation = ccsa.collation_name
		WHERE t.table_schema = ? AND t.table_name = ?
	`

	row := e.client.db.QueryRowContext(ctx, query, e.schemaName, table.Name)
	return row.Scan(&table.Collation, &table.Charset)
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT column_name, column_type, is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := e.client.db.QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultVal, &col.Position); err != nil {
			return err
		}

		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}
		table.Columns = append(table.Columns, &col)
	}

	return rows.Err()
}

// extractKeys reads the primary key, unique keys and plain indexes from
// information_schema.statistics.
func (e *MySQLExtractor) extractKeys(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			s.index_name,
			s.non_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ? AND s.table_name = ?
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.db.QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, columnNames string
		var nonUnique int

		if err := rows.Scan(&name, &nonUnique, &columnNames); err != nil {
			return err
		}

		kind := schema.Index
		switch {
		case name == "PRIMARY":
			kind = schema.PrimaryKey
		case nonUnique == 0:
			kind = schema.Unique
		}
		table.AddConstraint(&schema.Constraint{
			Kind:    kind,
			Name:    name,
			Columns: strings.Split(columnNames, ","),
		})
	}

	return rows.Err()
}

func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			kcu.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS column_names,
			kcu.referenced_table_name,
			GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position) AS ref_columns
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		GROUP BY kcu.constraint_name, kcu.referenced_table_name
		ORDER BY kcu.constraint_name
	`

	rows, err := e.client.db.QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, columnNames, refTable, refColumns string

		if err := rows.Scan(&name, &columnNames, &refTable, &refColumns); err != nil {
			return err
		}

		table.AddConstraint(&schema.Constraint{
			Kind:       schema.ForeignKey,
			Name:       name,
			Columns:    strings.Split(columnNames, ","),
			RefTable:   refTable,
			RefColumns: strings.Split(refColumns, ","),
		})
	}

	return rows.Err()
}

// forcePrimaryKeyNotNull aligns live extraction with the dump parser:
// primary key columns are never nullable.
func forcePrimaryKeyNotNull(table *schema.Table) {
	for _, con := range table.Constraints {
		if con.Kind != schema.PrimaryKey {
			continue
		}
		for _, name := range con.Columns {
			if col := table.Column(name); col != nil {
				col.Nullable = false
			}
		}
	}
}
