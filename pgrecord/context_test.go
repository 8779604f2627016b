package pgrecord

import (
	"errors"
	"testing"

	"marcovega/pgrecord/pgrecord/backend"
)

func newPersonContext() (*DataContext, *fakeConnector) {
	conn := newFakeConnection()
	personTable(conn)
	connector := &fakeConnector{conn: conn}

	return NewContext(connector), connector
}

func TestInsertBindsRowMajor(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	err := ctx.InsertInto("public", "person", []Record{
		{"first_name": "Jim", "last_name": "Jimenez", "age": 30},
		{"first_name": "Ana", "last_name": "Luna", "age": 41},
	})
	if err != nil {
		t.Fatal(err)
	}

	conn := connector.conn
	if len(conn.prepared) != 1 {
		t.Fatalf("prepared %d statements, want 1", len(conn.prepared))
	}

	ps := conn.prepared[0]
	if ps.executes != 1 {
		t.Errorf("executed %d times, want 1", ps.executes)
	}

	wantValues := []any{"Jim", "Jimenez", 30, "Ana", "Luna", 41}
	if len(ps.binds) != len(wantValues) {
		t.Fatalf("bound %d values, want %d", len(ps.binds), len(wantValues))
	}
	for i, bind := range ps.binds {
		if bind.ordinal != i+1 {
			t.Errorf("bind %d has ordinal %d", i, bind.ordinal)
		}
		if bind.value != wantValues[i] {
			t.Errorf("bind %d is %v, want %v", i, bind.value, wantValues[i])
		}
		if bind.typeCode != backend.TypeCodeNone {
			t.Errorf("bind %d carries type code %d", i, bind.typeCode)
		}
	}
}

func TestInsertIgnoresSuppliedIdentityValue(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	err := ctx.InsertInto("public", "person", []Record{
		{"id": 999, "first_name": "Jim", "last_name": "Jimenez", "age": 30},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, bind := range connector.conn.prepared[0].binds {
		if bind.value == 999 {
			t.Error("identity value was bound")
		}
	}
}

func TestInsertMissingKeyFailsWithoutExecuting(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	err := ctx.InsertInto("public", "person", []Record{
		{"first_name": "Jim", "age": 30},
	})

	var keyErr *KeyNotFoundError
	if !errors.As(err, &keyErr) {
		t.Fatalf("got %v, want KeyNotFoundError", err)
	}
	if keyErr.Key != "last_name" {
		t.Errorf("missing key reported as %q", keyErr.Key)
	}
	if connector.conn.prepared[0].executes != 0 {
		t.Error("statement was executed despite the missing key")
	}
}

func TestDeleteBindsColumnMajorKeyValues(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	err := ctx.DeleteFrom("public", "person", []Record{
		{"id": 1}, {"id": 2}, {"id": 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	ps := connector.conn.prepared[0]
	wantValues := []any{1, 2, 3}
	for i, bind := range ps.binds {
		if bind.value != wantValues[i] {
			t.Errorf("bind %d is %v, want %v", i, bind.value, wantValues[i])
		}
	}
	if ps.executes != 1 {
		t.Errorf("executed %d times, want 1", ps.executes)
	}
}

func TestUpdateBindsTypedAndNullsMissingColumns(t *testing.T) {
	conn := newFakeConnection()
	conn.addTable("public", "employee",
		[][]any{
			{"id", int64(23), "int4", 1},
			{"department", int64(25), "text", 2},
			{"salary", int64(1700), "numeric", 3},
		},
		[][]any{{"id", 1}},
	)
	ctx := NewContext(&fakeConnector{conn: conn})
	defer ctx.Close()

	err := ctx.Update("public", "employee", []Record{
		{"id": 3, "salary": 38010.66},
	})
	if err != nil {
		t.Fatal(err)
	}

	ps := conn.prepared[0]
	if len(ps.binds) != 3 {
		t.Fatalf("bound %d values, want 3", len(ps.binds))
	}

	if ps.binds[0].value != 3 || ps.binds[0].typeCode != 23 {
		t.Errorf("id bind: %+v", ps.binds[0])
	}
	if ps.binds[1].value != nil {
		t.Errorf("missing department should bind NULL, got %v", ps.binds[1].value)
	}
	if ps.binds[1].typeCode != 25 {
		t.Errorf("department NULL should stay typed, got code %d", ps.binds[1].typeCode)
	}
	if ps.binds[2].value != 38010.66 || ps.binds[2].typeCode != 1700 {
		t.Errorf("salary bind: %+v", ps.binds[2])
	}
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	if err := ctx.InsertInto("public", "person", nil); err != nil {
		t.Error(err)
	}
	if err := ctx.Update("public", "person", []Record{}); err != nil {
		t.Error(err)
	}
	if err := ctx.DeleteFrom("public", "person", nil); err != nil {
		t.Error(err)
	}

	if connector.connects != 0 {
		t.Errorf("empty batches opened %d connections", connector.connects)
	}
}

func TestOperationsWithoutPrimaryKeyFailBeforeSQL(t *testing.T) {
	conn := newFakeConnection()
	conn.addTable("public", "scratch",
		[][]any{{"note", int64(25), "text", 1}},
		nil,
	)
	ctx := NewContext(&fakeConnector{conn: conn})
	defer ctx.Close()

	var constraintErr *ConstraintError

	err := ctx.DeleteFrom("public", "scratch", []Record{{"note": "x"}})
	if !errors.As(err, &constraintErr) {
		t.Errorf("delete: got %v, want ConstraintError", err)
	}

	err = ctx.Update("public", "scratch", []Record{{"note": "x"}})
	if !errors.As(err, &constraintErr) {
		t.Errorf("update: got %v, want ConstraintError", err)
	}

	if len(conn.prepared) != 0 {
		t.Errorf("%d statements were prepared", len(conn.prepared))
	}
}

func TestArgumentValidation(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	var argErr *ArgumentError

	if err := ctx.InsertInto("", "person", []Record{{}}); !errors.As(err, &argErr) {
		t.Errorf("empty schema: got %v, want ArgumentError", err)
	}
	if err := ctx.DeleteFrom("public", "", []Record{{}}); !errors.As(err, &argErr) {
		t.Errorf("empty table: got %v, want ArgumentError", err)
	}
	if _, err := ctx.Metadata("", "person"); !errors.As(err, &argErr) {
		t.Errorf("metadata with empty schema: got %v, want ArgumentError", err)
	}

	if connector.connects != 0 {
		t.Error("validation failures should not touch the backend")
	}
}

func TestMetadataQueriedOncePerTable(t *testing.T) {
	ctx, connector := newPersonContext()
	defer ctx.Close()

	records := []Record{{"first_name": "Jim", "last_name": "Jimenez", "age": 30}}
	if err := ctx.InsertInto("public", "person", records); err != nil {
		t.Fatal(err)
	}
	if err := ctx.DeleteFrom("public", "person", []Record{{"id": 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Metadata("public", "person"); err != nil {
		t.Fatal(err)
	}

	conn := connector.conn
	if conn.columnQueries != 1 || conn.pkQueries != 1 {
		t.Errorf("catalog queried %d/%d times, want 1/1", conn.columnQueries, conn.pkQueries)
	}
	if connector.connects != 1 {
		t.Errorf("opened %d connections, want 1", connector.connects)
	}
}

func TestCloseReleasesEverythingInOrder(t *testing.T) {
	ctx, connector := newPersonContext()
	conn := connector.conn
	conn.scans[`select * from "public"."person"`] = [][]any{}

	if err := ctx.InsertInto("public", "person",
		[]Record{{"first_name": "Jim", "last_name": "Jimenez", "age": 30}}); err != nil {
		t.Fatal(err)
	}
	for range ctx.Records("public", "person") {
	}

	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}

	want := []string{"cursor:columns", "cursor:pks", "cursor:scan", "prepared", "statement", "connection"}
	if len(conn.closeLog) != len(want) {
		t.Fatalf("close log %v, want %v", conn.closeLog, want)
	}
	for i, entry := range conn.closeLog {
		if entry != want[i] {
			t.Fatalf("close log %v, want %v", conn.closeLog, want)
		}
	}
}

func TestCloseContinuesPastFailures(t *testing.T) {
	ctx, connector := newPersonContext()
	conn := connector.conn
	conn.cursorCloseErr = errors.New("cursor close failed")

	if _, err := ctx.Metadata("public", "person"); err != nil {
		t.Fatal(err)
	}

	err := ctx.Close()
	if err == nil {
		t.Fatal("close should surface the cursor failure")
	}

	// The failing column cursor must not stop the rest of the teardown.
	last := conn.closeLog[len(conn.closeLog)-1]
	if last != "connection" {
		t.Errorf("connection was not closed, log: %v", conn.closeLog)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx, connector := newPersonContext()

	if _, err := ctx.Metadata("public", "person"); err != nil {
		t.Fatal(err)
	}

	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	closes := 0
	for _, entry := range connector.conn.closeLog {
		if entry == "connection" {
			closes++
		}
	}
	if closes != 1 {
		t.Errorf("connection closed %d times", closes)
	}
}
