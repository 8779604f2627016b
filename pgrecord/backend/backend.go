// Package backend defines the narrow capability surface pgrecord needs from a
// database driver: connections, an ad-hoc statement, prepared statements and
// forward-only cursors. The core never touches wire protocol, authentication
// or pooling; it only composes these primitives.
package backend

// TypeCode identifies a backend column type for typed parameter binding.
// For the PostgreSQL implementation this is the pg_type OID. TypeCodeNone
// means the binding carries no explicit type.
type TypeCode int64

const TypeCodeNone TypeCode = 0

// Connector hands out physical connections. Implementations decide how a
// connection is obtained (pool checkout, direct dial).
type Connector interface {
	Connect() (Connection, error)
}

// Connection is one physical database connection.
type Connection interface {
	// CatalogName reports the catalog (database) this connection is bound to.
	CatalogName() (string, error)
	// ColumnMetadata returns a cursor over the columns of schema.table
	// matching pattern, ordered by ordinal position. Each row exposes,
	// in cursor ordinals 1..4: name, type code, backend type name, ordinal.
	ColumnMetadata(catalog, schema, table, pattern string) (Cursor, error)
	// PrimaryKeyMetadata returns a cursor over the primary-key columns of
	// schema.table ordered by key position. Ordinals 1..2: name, position.
	PrimaryKeyMetadata(catalog, schema, table string) (Cursor, error)
	// QuoteIdentifier escapes raw for safe use as an identifier in SQL text.
	QuoteIdentifier(raw string) string
	// Statement returns an ad-hoc statement bound to this connection.
	Statement() (Statement, error)
	// Prepare compiles sql, which may contain positional placeholders.
	Prepare(sql string) (PreparedStatement, error)
	Close() error
}

// Statement runs SQL text directly, without parameters.
type Statement interface {
	ExecuteQuery(sql string) (Cursor, error)
	Close() error
}

// PreparedStatement is a compiled statement with positional parameters.
type PreparedStatement interface {
	// Bind sets the parameter at the 1-based ordinal. A nil value is the
	// SQL null. typeCode may be TypeCodeNone when no explicit type applies.
	Bind(ordinal int, value any, typeCode TypeCode) error
	// Execute runs the statement once with all bound parameters.
	Execute() error
	Close() error
}

// Cursor is a forward-only view over a result. Column ordinals are 1-based.
type Cursor interface {
	Advance() (bool, error)
	Value(ordinal int) (any, error)
	Close() error
}
