package pgrecord

import (
	"fmt"

	"marcovega/pgrecord/pgrecord/backend"
)

// Fake driver backend. Tables are registered with raw metadata rows shaped
// the way the real catalog cursors report them; every resource records its
// closes into a shared log so teardown ordering can be asserted.

type bindCall struct {
	ordinal  int
	value    any
	typeCode backend.TypeCode
}

type fakeCursor struct {
	name     string
	rows     [][]any
	pos      int
	closeErr error
	conn     *fakeConnection
}

func (c *fakeCursor) Advance() (bool, error) {
	if c.pos >= len(c.rows) {
		return false, nil
	}
	c.pos++
	return true, nil
}

func (c *fakeCursor) Value(ordinal int) (any, error) {
	if c.pos == 0 {
		return nil, fmt.Errorf("cursor is not positioned on a row")
	}
	row := c.rows[c.pos-1]
	if ordinal < 1 || ordinal > len(row) {
		return nil, fmt.Errorf("cursor ordinal %d out of range", ordinal)
	}
	return row[ordinal-1], nil
}

func (c *fakeCursor) Close() error {
	c.conn.closeLog = append(c.conn.closeLog, "cursor:"+c.name)
	return c.closeErr
}

type fakePrepared struct {
	sql      string
	binds    []bindCall
	executes int
	execErr  error
	conn     *fakeConnection
}

func (p *fakePrepared) Bind(ordinal int, value any, typeCode backend.TypeCode) error {
	p.binds = append(p.binds, bindCall{ordinal: ordinal, value: value, typeCode: typeCode})
	return nil
}

func (p *fakePrepared) Execute() error {
	if p.execErr != nil {
		return p.execErr
	}
	p.executes++
	return nil
}

func (p *fakePrepared) Close() error {
	p.conn.closeLog = append(p.conn.closeLog, "prepared")
	return nil
}

type fakeStatement struct {
	conn *fakeConnection
}

func (s *fakeStatement) ExecuteQuery(sql string) (backend.Cursor, error) {
	s.conn.queries = append(s.conn.queries, sql)

	rows, ok := s.conn.scans[sql]
	if !ok {
		return nil, fmt.Errorf("no scan registered for %q", sql)
	}

	cursor := &fakeCursor{name: "scan", rows: rows, conn: s.conn}
	return cursor, nil
}

func (s *fakeStatement) Close() error {
	s.conn.closeLog = append(s.conn.closeLog, "statement")
	return nil
}

type fakeConnection struct {
	columns map[SchemaTableKey][][]any
	pks     map[SchemaTableKey][][]any
	scans   map[string][][]any

	columnQueries int
	pkQueries     int
	statements    int
	queries       []string
	prepared      []*fakePrepared
	closeLog      []string

	cursorCloseErr error
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		columns: make(map[SchemaTableKey][][]any),
		pks:     make(map[SchemaTableKey][][]any),
		scans:   make(map[string][][]any),
	}
}

func (f *fakeConnection) addTable(schema, table string, columns, pks [][]any) {
	key := SchemaTableKey{Schema: schema, Table: table}
	f.columns[key] = columns
	f.pks[key] = pks
}

func (f *fakeConnection) CatalogName() (string, error) {
	return "testdb", nil
}

func (f *fakeConnection) ColumnMetadata(catalog, schema, table, pattern string) (backend.Cursor, error) {
	f.columnQueries++
	rows := f.columns[SchemaTableKey{Schema: schema, Table: table}]
	return &fakeCursor{name: "columns", rows: rows, conn: f, closeErr: f.cursorCloseErr}, nil
}

func (f *fakeConnection) PrimaryKeyMetadata(catalog, schema, table string) (backend.Cursor, error) {
	f.pkQueries++
	rows := f.pks[SchemaTableKey{Schema: schema, Table: table}]
	return &fakeCursor{name: "pks", rows: rows, conn: f}, nil
}

func (f *fakeConnection) QuoteIdentifier(raw string) string {
	return `"` + raw + `"`
}

func (f *fakeConnection) Statement() (backend.Statement, error) {
	f.statements++
	return &fakeStatement{conn: f}, nil
}

func (f *fakeConnection) Prepare(sql string) (backend.PreparedStatement, error) {
	ps := &fakePrepared{sql: sql, conn: f}
	f.prepared = append(f.prepared, ps)
	return ps, nil
}

func (f *fakeConnection) Close() error {
	f.closeLog = append(f.closeLog, "connection")
	return nil
}

type fakeConnector struct {
	conn     *fakeConnection
	connects int
}

func (f *fakeConnector) Connect() (backend.Connection, error) {
	f.connects++
	return f.conn, nil
}

// personTable registers the usual test table: id serial pk, first_name text,
// last_name text, age int4.
func personTable(conn *fakeConnection) {
	conn.addTable("public", "person",
		[][]any{
			{"id", int64(23), "serial", 1},
			{"first_name", int64(25), "text", 2},
			{"last_name", int64(25), "text", 3},
			{"age", int64(23), "int4", 4},
		},
		[][]any{
			{"id", 1},
		},
	)
}

func personMetadata() *TableMetadata {
	return &TableMetadata{
		Columns: []ColumnDescriptor{
			{Name: "id", TypeCode: 23, TypeName: "serial"},
			{Name: "first_name", TypeCode: 25, TypeName: "text"},
			{Name: "last_name", TypeCode: 25, TypeName: "text"},
			{Name: "age", TypeCode: 23, TypeName: "int4"},
		},
		PrimaryKey: []string{"id"},
	}
}
