package backend

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	conn := &sqlConnection{}

	cases := map[string]string{
		"person":     `"person"`,
		"Mixed Case": `"Mixed Case"`,
		`with"quote`: `"with""quote"`,
		"select":     `"select"`,
	}

	for raw, want := range cases {
		if got := conn.QuoteIdentifier(raw); got != want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestPreparedBindGrowsArguments(t *testing.T) {
	ps := &sqlPrepared{}

	if err := ps.Bind(3, "c", TypeCodeNone); err != nil {
		t.Fatal(err)
	}
	if err := ps.Bind(1, "a", TypeCodeNone); err != nil {
		t.Fatal(err)
	}

	if len(ps.args) != 3 {
		t.Fatalf("args length %d, want 3", len(ps.args))
	}
	if ps.args[0] != "a" || ps.args[1] != nil || ps.args[2] != "c" {
		t.Errorf("args = %v", ps.args)
	}

	if err := ps.Bind(0, "x", TypeCodeNone); err == nil {
		t.Error("ordinal 0 should be rejected")
	}
}
