package pgrecord

import (
	"fmt"

	"marcovega/pgrecord/pgrecord/backend"
)

// SchemaTableKey identifies a table by schema and relation name. It is the
// lookup key for the per-context metadata and scan caches; being a plain
// value struct, map lookups compare it structurally.
type SchemaTableKey struct {
	Schema string
	Table  string
}

// ColumnDescriptor describes one table column as reported by the catalog.
// TypeName carries the serial pseudo-type names for auto-generated columns,
// which is how identity columns are told apart from ordinary ones.
type ColumnDescriptor struct {
	Name     string
	TypeCode backend.TypeCode
	TypeName string
}

// TableMetadata aggregates the column and primary-key descriptors of one
// table. PrimaryKey holds column names in declared key order and is empty
// when the table has no primary key.
type TableMetadata struct {
	Columns    []ColumnDescriptor
	PrimaryKey []string
}

func isIdentityType(typeName string) bool {
	switch typeName {
	case "smallserial", "serial", "bigserial":
		return true
	}
	return false
}

// manualColumns returns the columns that accept explicit values on insert,
// excluding auto-generated identity columns.
func (m *TableMetadata) manualColumns() []ColumnDescriptor {
	columns := make([]ColumnDescriptor, 0, len(m.Columns))
	for _, col := range m.Columns {
		if !isIdentityType(col.TypeName) {
			columns = append(columns, col)
		}
	}

	return columns
}

func (m *TableMetadata) isPrimaryKey(name string) bool {
	for _, pk := range m.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// Metadata returns the column and primary-key descriptors for schema.table.
// The catalog is queried once per (schema, table) per context; later calls
// reuse the cached descriptors.
func (c *DataContext) Metadata(schema, table string) (*TableMetadata, error) {
	if err := validateName("schema", schema); err != nil {
		return nil, err
	}
	if err := validateName("table", table); err != nil {
		return nil, err
	}

	return c.metadataFor(schema, table)
}

// metadataFor is the uncached-path worker behind Metadata. The catalog
// cursors used to build the descriptors stay tracked until Close.
func (c *DataContext) metadataFor(schema, table string) (*TableMetadata, error) {
	key := SchemaTableKey{Schema: schema, Table: table}
	if meta, ok := c.metadata[key]; ok {
		return meta, nil
	}

	if err := c.ensureConnection(); err != nil {
		return nil, err
	}

	catalog, err := c.conn.CatalogName()
	if err != nil {
		return nil, err
	}

	columns, err := c.conn.ColumnMetadata(catalog, schema, table, "%")
	if err != nil {
		return nil, err
	}
	c.trackCursor(columns)

	primaryKeys, err := c.conn.PrimaryKeyMetadata(catalog, schema, table)
	if err != nil {
		return nil, err
	}
	c.trackCursor(primaryKeys)

	meta := &TableMetadata{}

	for {
		ok, err := columns.Advance()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		name, err := cursorString(columns, 1)
		if err != nil {
			return nil, err
		}
		code, err := cursorInt64(columns, 2)
		if err != nil {
			return nil, err
		}
		typeName, err := cursorString(columns, 3)
		if err != nil {
			return nil, err
		}

		meta.Columns = append(meta.Columns, ColumnDescriptor{
			Name:     name,
			TypeCode: backend.TypeCode(code),
			TypeName: typeName,
		})
	}

	for {
		ok, err := primaryKeys.Advance()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		name, err := cursorString(primaryKeys, 1)
		if err != nil {
			return nil, err
		}
		meta.PrimaryKey = append(meta.PrimaryKey, name)
	}

	c.metadata[key] = meta

	return meta, nil
}

func cursorString(cursor backend.Cursor, ordinal int) (string, error) {
	value, err := cursor.Value(ordinal)
	if err != nil {
		return "", err
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("metadata value at ordinal %d is %T, not string", ordinal, value)
	}

	return s, nil
}

func cursorInt64(cursor backend.Cursor, ordinal int) (int64, error) {
	value, err := cursor.Value(ordinal)
	if err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("metadata value at ordinal %d is %T, not integer", ordinal, value)
	}
}
