package sqlitevec

import (
	"strings"
	"testing"
)

func TestCollectionDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path", "/data/kb.db", "/data/kb.db?" + dsnPragmas},
		{"existing query", "/data/kb.db?cache=shared", "/data/kb.db?cache=shared&" + dsnPragmas},
		{"memory", ":memory:", ":memory:"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		if got := collectionDSN(tc.in); got != tc.want {
			t.Fatalf("%s: collectionDSN(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestCollectionDSN_ExplicitPragmasPassThrough(t *testing.T) {
	in := "/data/kb.db?_pragma=journal_mode(DELETE)"
	if got := collectionDSN(in); got != in {
		t.Fatalf("explicit pragmas rewritten: %q", got)
	}
	if strings.Count(collectionDSN("/data/kb.db"), "_pragma=") != 3 {
		t.Fatalf("expected three pragmas on a plain path")
	}
}
