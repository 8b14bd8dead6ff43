package idcard

import (
	"strings"
	"testing"
)

func TestDuplicateQueryWithoutExclusion(t *testing.T) {
	query, args := duplicateQuery("Anita Kumar", "Ravi Kumar", "")

	if strings.Contains(query, "$3") {
		t.Errorf("query must not reference $3 when no id is excluded: %s", query)
	}
	if strings.Contains(query, "id <>") {
		t.Errorf("query must not compare id when no id is excluded: %s", query)
	}
	if len(args) != 2 {
		t.Errorf("args = %d, want 2", len(args))
	}
}

func TestDuplicateQueryWithExclusion(t *testing.T) {
	query, args := duplicateQuery("Anita Kumar", "Ravi Kumar", "3d6f0c52-1111-2222-3333-444455556666")

	if !strings.Contains(query, "id <> $3") {
		t.Errorf("query must exclude the given id: %s", query)
	}
	if len(args) != 3 {
		t.Fatalf("args = %d, want 3", len(args))
	}
	if args[2] != "3d6f0c52-1111-2222-3333-444455556666" {
		t.Errorf("args[2] = %v, want the excluded id", args[2])
	}
}
