package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dverney/dumpdiff/internal/schema"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// PostgresExtractor reads table structure out of a live PostgreSQL database.
// PostgreSQL has no table-level charset or collation in the MySQL sense, so
// those fields stay absent. Primary keys are registered under the name
// PRIMARY to keep the constraint identity stable across source kinds.
type PostgresExtractor struct {
	client     *PostgresClient
	schemaName string
}

// NewPostgresExtractor creates a new PostgreSQL schema extractor
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the structure of every base table in the schema.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context) (*schema.Schema, error) {
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

func (e *PostgresExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.conn.Query(ctx, query, e.schemaName)
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

func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if err := e.extractPrimaryKey(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
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

// normalizePostgresType maps verbose SQL type names to commonly-used
// PostgreSQL equivalents.
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return "varchar"
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "USER-DEFINED", "ARRAY":
		return normalizeUdtName(udtName)
	default:
		return dataType
	}
}

// normalizeUdtName turns internal udt names into readable ones
// (_int4 -> int4[]).
func normalizeUdtName(udtName string) string {
	if strings.HasPrefix(udtName, "_") {
		return udtName[1:] + "[]"
	}
	return udtName
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			character_maximum_length,
			is_nullable,
			column_default,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.conn.Query(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col schema.Column
		var dataType, udtName, nullable string
		var charMaxLength *int
		var defaultVal *string

		if err := rows.Scan(&col.Name, &dataType, &udtName, &charMaxLength,
			&nullable, &defaultVal, &col.Position); err != nil {
			return err
		}

		col.Type = normalizePostgresType(dataType, udtName, charMaxLength)
		col.Nullable = nullable == "YES"
		col.Default = defaultVal
		table.Columns = append(table.Columns, &col)
	}

	return rows.Err()
}

func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.conn.Query(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return err
		}
		pk = append(pk, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(pk) > 0 {
		table.AddConstraint(&schema.Constraint{
			Kind:    schema.PrimaryKey,
			Name:    "PRIMARY",
			Columns: pk,
		})
	}
	return nil
}

// extractIndexes reads unique and plain indexes from pg_catalog. Unique
// constraints are backed by unique indexes of the same name, so they are
// covered here too.
func (e *PostgresExtractor) extractIndexes(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.conn.Query(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var isUnique bool
		var columns []string

		if err := rows.Scan(&name, &isUnique, &columns); err != nil {
			return err
		}

		kind := schema.Index
		if isUnique {
			kind = schema.Unique
		}
		table.AddConstraint(&schema.Constraint{Kind: kind, Name: name, Columns: columns})
	}

	return rows.Err()
}

func (e *PostgresExtractor) extractForeignKeys(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.conn.Query(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	// One row per covered column; regroup by constraint name.
	byName := make(map[string]*schema.Constraint)
	var order []string
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return err
		}

		con, ok := byName[name]
		if !ok {
			con = &schema.Constraint{Kind: schema.ForeignKey, Name: name, RefTable: refTable}
			byName[name] = con
			order = append(order, name)
		}
		con.Columns = append(con.Columns, column)
		con.RefColumns = append(con.RefColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		table.AddConstraint(byName[name])
	}
	return nil
}
