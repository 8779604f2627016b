package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Catalog queries backing the metadata interface. Identity and serial
// columns report the serial pseudo-type names so callers can tell
// auto-generated columns apart from plain integer ones.
const (
	columnMetadataSQL = `
select a.attname,
       a.atttypid::bigint,
       case
           when a.attidentity <> '' or pg_catalog.pg_get_expr(d.adbin, d.adrelid) like 'nextval(%' then
               case t.typname
                   when 'int2' then 'smallserial'
                   when 'int4' then 'serial'
                   when 'int8' then 'bigserial'
                   else t.typname
               end
           else t.typname
       end,
       a.attnum::int
from pg_catalog.pg_attribute a
join pg_catalog.pg_class c on c.oid = a.attrelid
join pg_catalog.pg_namespace n on n.oid = c.relnamespace
join pg_catalog.pg_type t on t.oid = a.atttypid
left join pg_catalog.pg_attrdef d on d.adrelid = a.attrelid and d.adnum = a.attnum
where n.nspname = $1
  and c.relname = $2
  and a.attname like $3
  and a.attnum > 0
  and not a.attisdropped
order by a.attnum`

	primaryKeySQL = `
select kcu.column_name, kcu.ordinal_position::int
from information_schema.table_constraints tc
join information_schema.key_column_usage kcu
  on kcu.constraint_name = tc.constraint_name
 and kcu.constraint_schema = tc.constraint_schema
where tc.constraint_type = 'PRIMARY KEY'
  and tc.table_schema = $1
  and tc.table_name = $2
order by kcu.ordinal_position`
)

// Pool is a Connector over a database/sql pool opened with the pgx driver.
// Each Connect checks out a dedicated physical connection.
type Pool struct {
	ctx context.Context
	db  *sql.DB
}

// Open creates a pool for the given pgx DSN. The context scopes every
// operation performed through connections handed out by this pool.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	return &Pool{ctx: ctx, db: db}, nil
}

// Check pings the database, retrying up to maxAttempts with a growing delay.
func (p *Pool) Check(name string, maxAttempts uint8) error {
	var attempt uint8
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		err := p.db.PingContext(p.ctx)
		if err != nil {
			slog.Warn("Connection failed",
				"connection", name,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err,
			)
			time.Sleep(time.Second * time.Duration(attempt*2))
		} else {
			return nil
		}
	}
	return fmt.Errorf("connection to %s timeout", name)
}

func (p *Pool) Connect() (Connection, error) {
	conn, err := p.db.Conn(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}

	return &sqlConnection{ctx: p.ctx, conn: conn}, nil
}

// Close releases the underlying pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

type sqlConnection struct {
	ctx  context.Context
	conn *sql.Conn
}

func (c *sqlConnection) CatalogName() (string, error) {
	var catalog string
	err := c.conn.QueryRowContext(c.ctx, "select current_database()").Scan(&catalog)
	if err != nil {
		return "", fmt.Errorf("error resolving catalog: %w", err)
	}

	return catalog, nil
}

func (c *sqlConnection) ColumnMetadata(catalog, schema, table, pattern string) (Cursor, error) {
	// PostgreSQL connections see a single catalog; the argument is accepted
	// for interface symmetry and ignored.
	_ = catalog

	rows, err := c.conn.QueryContext(c.ctx, columnMetadataSQL, schema, table, pattern)
	if err != nil {
		return nil, fmt.Errorf("error querying column metadata: %w", err)
	}

	return newRowsCursor(rows, 4), nil
}

func (c *sqlConnection) PrimaryKeyMetadata(catalog, schema, table string) (Cursor, error) {
	_ = catalog

	rows, err := c.conn.QueryContext(c.ctx, primaryKeySQL, schema, table)
	if err != nil {
		return nil, fmt.Errorf("error querying primary key metadata: %w", err)
	}

	return newRowsCursor(rows, 2), nil
}

func (c *sqlConnection) QuoteIdentifier(raw string) string {
	return `"` + strings.ReplaceAll(raw, `"`, `""`) + `"`
}

func (c *sqlConnection) Statement() (Statement, error) {
	return &sqlStatement{ctx: c.ctx, conn: c.conn}, nil
}

func (c *sqlConnection) Prepare(query string) (PreparedStatement, error) {
	stmt, err := c.conn.PrepareContext(c.ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error preparing statement: %w", err)
	}

	return &sqlPrepared{ctx: c.ctx, stmt: stmt}, nil
}

func (c *sqlConnection) Close() error {
	return c.conn.Close()
}

// sqlStatement runs unparameterized SQL on its owning connection. It holds no
// state of its own, so closing it is a no-op.
type sqlStatement struct {
	ctx  context.Context
	conn *sql.Conn
}

func (s *sqlStatement) ExecuteQuery(query string) (Cursor, error) {
	rows, err := s.conn.QueryContext(s.ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error running query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("error identifying columns: %w", err)
	}

	return newRowsCursor(rows, len(cols)), nil
}

func (s *sqlStatement) Close() error {
	return nil
}

type sqlPrepared struct {
	ctx  context.Context
	stmt *sql.Stmt
	args []any
}

func (p *sqlPrepared) Bind(ordinal int, value any, typeCode TypeCode) error {
	if ordinal < 1 {
		return fmt.Errorf("bind ordinal %d out of range", ordinal)
	}
	// The synthesized SQL carries explicit casts, so the type code needs no
	// driver-side handling here.
	_ = typeCode

	for len(p.args) < ordinal {
		p.args = append(p.args, nil)
	}
	p.args[ordinal-1] = value

	return nil
}

func (p *sqlPrepared) Execute() error {
	_, err := p.stmt.ExecContext(p.ctx, p.args...)
	if err != nil {
		return fmt.Errorf("error executing statement: %w", err)
	}

	return nil
}

func (p *sqlPrepared) Close() error {
	return p.stmt.Close()
}

// rowsCursor adapts *sql.Rows to the Cursor interface, scanning each advanced
// row into a value slice through the usual pointer indirection.
type rowsCursor struct {
	rows   *sql.Rows
	values []any
	ready  bool
}

func newRowsCursor(rows *sql.Rows, width int) *rowsCursor {
	return &rowsCursor{rows: rows, values: make([]any, width)}
}

func (c *rowsCursor) Advance() (bool, error) {
	if !c.rows.Next() {
		c.ready = false
		if err := c.rows.Err(); err != nil {
			return false, fmt.Errorf("generic row error: %w", err)
		}
		return false, nil
	}

	pointers := make([]any, len(c.values))
	for i := range c.values {
		c.values[i] = nil
		pointers[i] = &c.values[i]
	}

	if err := c.rows.Scan(pointers...); err != nil {
		return false, fmt.Errorf("error scanning rows: %w", err)
	}
	c.ready = true

	return true, nil
}

func (c *rowsCursor) Value(ordinal int) (any, error) {
	if !c.ready {
		return nil, fmt.Errorf("cursor is not positioned on a row")
	}
	if ordinal < 1 || ordinal > len(c.values) {
		return nil, fmt.Errorf("cursor ordinal %d out of range", ordinal)
	}

	value := c.values[ordinal-1]
	if b, ok := value.([]byte); ok {
		return string(b), nil
	}

	return value, nil
}

func (c *rowsCursor) Close() error {
	return c.rows.Close()
}
