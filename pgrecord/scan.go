package pgrecord

import (
	"iter"
	"time"

	"marcovega/pgrecord/pgrecord/backend"
)

type scanState int

const (
	scanAdvancing scanState = iota
	scanExhausted
)

// tableScan is the cached cursor state behind a full-table scan. One scan is
// created per (schema, table) per context, shared by every Records call for
// that table: the scan is a single forward-only pass, not restartable within
// the context.
type tableScan struct {
	cursor  backend.Cursor
	columns []ColumnDescriptor
	state   scanState
}

// scanFor returns the cached scan for the table, issuing the backing query
// through the shared ad-hoc statement on first request.
func (c *DataContext) scanFor(schema, table string) (*tableScan, error) {
	key := SchemaTableKey{Schema: schema, Table: table}
	if scan, ok := c.scans[key]; ok {
		return scan, nil
	}

	meta, err := c.metadataFor(schema, table)
	if err != nil {
		return nil, err
	}

	if err := c.ensureStatement(); err != nil {
		return nil, err
	}

	cursor, err := c.stmt.ExecuteQuery("select * from " + qualifiedName(c.conn, schema, table))
	if err != nil {
		return nil, err
	}
	c.trackCursor(cursor)

	scan := &tableScan{cursor: cursor, columns: meta.Columns}
	c.scans[key] = scan

	return scan, nil
}

// Records returns the rows of schema.table as a sequence of records. The
// underlying query runs once per context: iterating a second time continues
// where the first left off, and once the cursor is exhausted further
// sequences are empty.
func (c *DataContext) Records(schema, table string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if err := validateName("schema", schema); err != nil {
			yield(nil, err)
			return
		}
		if err := validateName("table", table); err != nil {
			yield(nil, err)
			return
		}

		scan, err := c.scanFor(schema, table)
		if err != nil {
			yield(nil, err)
			return
		}

		for scan.state == scanAdvancing {
			ok, err := scan.cursor.Advance()
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				scan.state = scanExhausted
				return
			}

			record, err := materializeRow(scan.cursor, scan.columns)
			if !yield(record, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// materializeRow converts the cursor's current row into a record keyed by
// column name, coercing values according to the column's backend type.
func materializeRow(cursor backend.Cursor, columns []ColumnDescriptor) (Record, error) {
	record := make(Record, len(columns))
	for i, col := range columns {
		value, err := cursor.Value(i + 1)
		if err != nil {
			return nil, err
		}
		record[col.Name] = coerceValue(value, col.TypeName)
	}

	return record, nil
}

// Temporal columns arrive as text from some drivers; parse those into
// time.Time. Everything else keeps the driver's native mapping.
func coerceValue(value any, typeName string) any {
	text, ok := value.(string)
	if !ok {
		return value
	}

	var layout string
	switch typeName {
	case "date":
		layout = "2006-01-02"
	case "time":
		layout = "15:04:05.999999999"
	case "timestamp":
		layout = "2006-01-02 15:04:05.999999999"
	default:
		return value
	}

	parsed, err := time.Parse(layout, text)
	if err != nil {
		return value
	}

	return parsed
}
