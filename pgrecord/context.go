package pgrecord

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"marcovega/pgrecord/pgrecord/backend"
)

// DataContext owns one physical database connection and every cursor and
// prepared statement opened on its behalf. It is the unit of resource scoping:
// all tracked resources are released together by Close, regardless of which
// operation created them.
//
// A DataContext is not safe for concurrent use. Use one context per logical
// unit of work; independent contexts share no state.
type DataContext struct {
	id        string
	connector backend.Connector

	conn backend.Connection
	stmt backend.Statement

	cursors  []backend.Cursor
	prepared []backend.PreparedStatement

	metadata map[SchemaTableKey]*TableMetadata
	scans    map[SchemaTableKey]*tableScan
}

// NewContext creates a context over the given connector. No connection is
// opened until the first operation needs one.
func NewContext(connector backend.Connector) *DataContext {
	return &DataContext{
		id:        uuid.NewString(),
		connector: connector,
		metadata:  make(map[SchemaTableKey]*TableMetadata),
		scans:     make(map[SchemaTableKey]*tableScan),
	}
}

// ensureConnection opens the single physical connection on first use.
func (c *DataContext) ensureConnection() error {
	if c.conn != nil {
		return nil
	}

	conn, err := c.connector.Connect()
	if err != nil {
		return err
	}
	c.conn = conn
	slog.Debug("Connection acquired", "context_id", c.id)

	return nil
}

// ensureStatement creates the shared ad-hoc statement on first use.
func (c *DataContext) ensureStatement() error {
	if err := c.ensureConnection(); err != nil {
		return err
	}
	if c.stmt != nil {
		return nil
	}

	stmt, err := c.conn.Statement()
	if err != nil {
		return err
	}
	c.stmt = stmt

	return nil
}

// prepare creates a new tracked prepared statement. Prepared statements are
// never reused across call sites; each one lives until the context closes.
func (c *DataContext) prepare(sql string) (backend.PreparedStatement, error) {
	if err := c.ensureConnection(); err != nil {
		return nil, err
	}

	ps, err := c.conn.Prepare(sql)
	if err != nil {
		return nil, err
	}
	c.prepared = append(c.prepared, ps)

	return ps, nil
}

func (c *DataContext) trackCursor(cursor backend.Cursor) {
	c.cursors = append(c.cursors, cursor)
}

// Close releases every tracked resource: cursors first, then prepared
// statements, then the ad-hoc statement, then the connection. Every release
// is attempted even when an earlier one fails; failures are aggregated into
// the returned error.
func (c *DataContext) Close() error {
	var errs []error

	for _, cursor := range c.cursors {
		if err := cursor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.cursors = nil

	for _, ps := range c.prepared {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.prepared = nil

	if c.stmt != nil {
		if err := c.stmt.Close(); err != nil {
			errs = append(errs, err)
		}
		c.stmt = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		c.conn = nil
	}

	clear(c.metadata)
	clear(c.scans)

	if len(errs) > 0 {
		slog.Error("Error releasing context resources", "context_id", c.id, "failures", len(errs))
		return errors.Join(errs...)
	}

	return nil
}
