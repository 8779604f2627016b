package pgrecord

import (
	"fmt"
	"strings"
)

// quoter escapes raw identifiers for inclusion in SQL text. Satisfied by
// backend.Connection; tests supply their own.
type quoter interface {
	QuoteIdentifier(raw string) string
}

// bindingStep is one planned parameter binding: the input row it reads from,
// the column key it looks up, and the column's type code when the statement
// carries typed placeholders. Steps are ordered; the step's position in the
// plan is its 1-based placeholder ordinal.
type bindingStep struct {
	row      int
	column   ColumnDescriptor
	typed    bool
	tolerant bool
}

// statementPlan pairs synthesized SQL text with the ordered binding plan the
// placeholders were laid out for. The plan makes the row/column iteration
// order an explicit artifact instead of implicit control flow.
type statementPlan struct {
	text  string
	steps []bindingStep
}

func qualifiedName(q quoter, schema, table string) string {
	return q.QuoteIdentifier(schema) + "." + q.QuoteIdentifier(table)
}

// buildDelete synthesizes a DELETE sized to n rows: one IN list per
// primary-key column, each holding n placeholders, conjoined with AND.
// Placeholders are laid out column-major: all of pk1's rows, then pk2's.
func buildDelete(q quoter, schema, table string, meta *TableMetadata, n int) (statementPlan, error) {
	if len(meta.PrimaryKey) == 0 {
		return statementPlan{}, &ConstraintError{
			Schema: schema,
			Table:  table,
			Reason: "delete requires a primary key",
		}
	}

	var plan statementPlan
	var sql strings.Builder

	sql.WriteString("delete from ")
	sql.WriteString(qualifiedName(q, schema, table))
	sql.WriteString(" where ")

	ordinal := 1
	for i, pk := range meta.PrimaryKey {
		if i > 0 {
			sql.WriteString(" and ")
		}
		sql.WriteString(q.QuoteIdentifier(pk))
		sql.WriteString(" in (")
		for row := range n {
			if row > 0 {
				sql.WriteString(", ")
			}
			fmt.Fprintf(&sql, "$%d", ordinal)
			ordinal++

			plan.steps = append(plan.steps, bindingStep{
				row:    row,
				column: ColumnDescriptor{Name: pk},
			})
		}
		sql.WriteString(")")
	}

	plan.text = sql.String()

	return plan, nil
}

// buildInsert synthesizes a multi-row INSERT over the table's manual columns,
// excluding identity columns so the database always assigns those. A table
// whose columns are all identity gets n bare default tuples. Placeholders are
// laid out row-major.
func buildInsert(q quoter, schema, table string, meta *TableMetadata, n int) statementPlan {
	var plan statementPlan
	var sql strings.Builder

	manual := meta.manualColumns()

	sql.WriteString("insert into ")
	sql.WriteString(qualifiedName(q, schema, table))

	if len(manual) == 0 {
		sql.WriteString(" values ")
		for row := range n {
			if row > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString("(default)")
		}
		plan.text = sql.String()
		return plan
	}

	sql.WriteString(" (")
	for i, col := range manual {
		if i > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString(q.QuoteIdentifier(col.Name))
	}
	sql.WriteString(") values ")

	ordinal := 1
	for row := range n {
		if row > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString("(")
		for i, col := range manual {
			if i > 0 {
				sql.WriteString(", ")
			}
			fmt.Fprintf(&sql, "$%d", ordinal)
			ordinal++

			plan.steps = append(plan.steps, bindingStep{row: row, column: col})
		}
		sql.WriteString(")")
	}

	plan.text = sql.String()

	return plan
}

// castTypeName maps a reported column type to the type its placeholder is
// cast to. The serial pseudo-types are not real types on the server side, so
// they cast to their underlying integer types.
func castTypeName(typeName string) string {
	switch typeName {
	case "smallserial":
		return "int2"
	case "serial":
		return "int4"
	case "bigserial":
		return "int8"
	}
	return typeName
}

// buildUpdate synthesizes a batched UPDATE as a VALUES CTE joined to the
// target table on every primary-key column, in declared key order:
//
//	with tmp (cols...) as (values ($1::t1, ...), ...)
//	update s.t set nonpk = tmp.nonpk, ... from tmp where s.t.pk = tmp.pk and ...
//
// All columns participate in the CTE, identity columns included, each cast to
// its backend type. Placeholders are laid out row-major over the full column
// list. Bindings are tolerant: a record missing a column binds NULL.
func buildUpdate(q quoter, schema, table string, meta *TableMetadata, n int) (statementPlan, error) {
	if len(meta.PrimaryKey) == 0 {
		return statementPlan{}, &ConstraintError{
			Schema: schema,
			Table:  table,
			Reason: "update requires a primary key",
		}
	}

	var setColumns []ColumnDescriptor
	for _, col := range meta.Columns {
		if !meta.isPrimaryKey(col.Name) {
			setColumns = append(setColumns, col)
		}
	}
	if len(setColumns) == 0 {
		return statementPlan{}, &ConstraintError{
			Schema: schema,
			Table:  table,
			Reason: "update requires at least one non-key column",
		}
	}

	var plan statementPlan
	var sql strings.Builder

	qualified := qualifiedName(q, schema, table)

	sql.WriteString("with tmp (")
	for i, col := range meta.Columns {
		if i > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString(q.QuoteIdentifier(col.Name))
	}
	sql.WriteString(") as (values ")

	ordinal := 1
	for row := range n {
		if row > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString("(")
		for i, col := range meta.Columns {
			if i > 0 {
				sql.WriteString(", ")
			}
			fmt.Fprintf(&sql, "$%d::%s", ordinal, castTypeName(col.TypeName))
			ordinal++

			plan.steps = append(plan.steps, bindingStep{
				row:      row,
				column:   col,
				typed:    true,
				tolerant: true,
			})
		}
		sql.WriteString(")")
	}
	sql.WriteString(") update ")
	sql.WriteString(qualified)
	sql.WriteString(" set ")

	for i, col := range setColumns {
		if i > 0 {
			sql.WriteString(", ")
		}
		quoted := q.QuoteIdentifier(col.Name)
		sql.WriteString(quoted)
		sql.WriteString(" = tmp.")
		sql.WriteString(quoted)
	}

	sql.WriteString(" from tmp where ")
	for i, pk := range meta.PrimaryKey {
		if i > 0 {
			sql.WriteString(" and ")
		}
		quoted := q.QuoteIdentifier(pk)
		sql.WriteString(qualified)
		sql.WriteString(".")
		sql.WriteString(quoted)
		sql.WriteString(" = tmp.")
		sql.WriteString(quoted)
	}

	plan.text = sql.String()

	return plan, nil
}
