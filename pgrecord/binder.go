package pgrecord

import "marcovega/pgrecord/pgrecord/backend"

// bindAndExecute walks the plan in order, binding each step's record value to
// the next placeholder ordinal, then executes the statement exactly once.
//
// Tolerant steps (update) resolve a missing record key to a SQL null; strict
// steps (insert, delete) propagate the record's KeyNotFoundError instead.
// Affected-row counts are not reported; callers get success or failure only.
func bindAndExecute(ps backend.PreparedStatement, plan statementPlan, records []Record) error {
	for i, step := range plan.steps {
		record := records[step.row]

		var value any
		if step.tolerant {
			value = record[step.column.Name]
		} else {
			v, err := record.Value(step.column.Name)
			if err != nil {
				return err
			}
			value = v
		}

		typeCode := backend.TypeCodeNone
		if step.typed {
			typeCode = step.column.TypeCode
		}

		if err := ps.Bind(i+1, value, typeCode); err != nil {
			return err
		}
	}

	return ps.Execute()
}
