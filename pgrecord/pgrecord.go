// Package pgrecord maps in-memory records onto PostgreSQL tables. Statements
// are synthesized from live catalog metadata and sized to the input batch, so
// inserting, updating or deleting n records costs one prepared statement and
// one execution. All resources opened on behalf of a DataContext are released
// together when the context closes.
//
// Typical use:
//
//	ctx := pgrecord.NewContext(pool)
//	defer ctx.Close()
//
//	err := ctx.InsertInto("public", "person", []pgrecord.Record{
//		{"first_name": "Jim", "last_name": "Jimenez", "age": 30},
//	})
package pgrecord

import "log/slog"

// InsertInto inserts the records into schema.table as a single multi-row
// statement. Identity columns are always assigned by the database; a value
// supplied for one is ignored. Every record must carry a value for each
// remaining column. An empty batch is a no-op success.
func (c *DataContext) InsertInto(schema, table string, records []Record) error {
	if err := validateName("schema", schema); err != nil {
		return err
	}
	if err := validateName("table", table); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	meta, err := c.metadataFor(schema, table)
	if err != nil {
		return err
	}

	plan := buildInsert(c.conn, schema, table, meta, len(records))
	slog.Debug("Synthesized insert", "context_id", c.id, "table", table, "rows", len(records))

	ps, err := c.prepare(plan.text)
	if err != nil {
		return err
	}

	return bindAndExecute(ps, plan, records)
}

// DeleteFrom deletes the rows identified by the records' primary-key values.
// The table must declare a primary key, and every record must carry a value
// for each key column. An empty batch is a no-op success.
func (c *DataContext) DeleteFrom(schema, table string, records []Record) error {
	if err := validateName("schema", schema); err != nil {
		return err
	}
	if err := validateName("table", table); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	meta, err := c.metadataFor(schema, table)
	if err != nil {
		return err
	}

	plan, err := buildDelete(c.conn, schema, table, meta, len(records))
	if err != nil {
		return err
	}
	slog.Debug("Synthesized delete", "context_id", c.id, "table", table, "rows", len(records))

	ps, err := c.prepare(plan.text)
	if err != nil {
		return err
	}

	return bindAndExecute(ps, plan, records)
}

// Update rewrites the rows identified by the records' primary-key values.
// The table must declare a primary key and at least one non-key column.
// Records may be partial: a column absent from a record is set to NULL.
// An empty batch is a no-op success.
func (c *DataContext) Update(schema, table string, records []Record) error {
	if err := validateName("schema", schema); err != nil {
		return err
	}
	if err := validateName("table", table); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	meta, err := c.metadataFor(schema, table)
	if err != nil {
		return err
	}

	plan, err := buildUpdate(c.conn, schema, table, meta, len(records))
	if err != nil {
		return err
	}
	slog.Debug("Synthesized update", "context_id", c.id, "table", table, "rows", len(records))

	ps, err := c.prepare(plan.text)
	if err != nil {
		return err
	}

	return bindAndExecute(ps, plan, records)
}
