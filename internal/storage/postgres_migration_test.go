package storage

import (
	"strings"
	"testing"
)

// Email lookups lower the address, so the schema must enforce uniqueness on
// the same lowered expression. A plain column constraint would let two
// casings of one address register as distinct users, and the lowered login
// select would then match more than one row.
func TestMigrationEnforcesLoweredEmailUniqueness(t *testing.T) {
	var usersTable, lowerIndex string
	for _, statement := range migrationStatements {
		if strings.Contains(statement, "CREATE TABLE IF NOT EXISTS users") {
			usersTable = statement
		}
		if strings.Contains(statement, "UNIQUE INDEX") && strings.Contains(statement, "lower(email)") {
			lowerIndex = statement
		}
	}
	if usersTable == "" {
		t.Fatal("users table migration missing")
	}
	if lowerIndex == "" {
		t.Fatal("expected a unique index on lower(email)")
	}
	for _, line := range strings.Split(usersTable, "\n") {
		if strings.Contains(line, "email") && strings.Contains(line, "UNIQUE") {
			t.Fatalf("email column must not carry a case-sensitive unique constraint: %q", line)
		}
	}
	if !strings.Contains(lowerIndex, "ON users") {
		t.Fatalf("lowered email index targets the wrong table: %q", lowerIndex)
	}
}

func TestMigrationStatementsAreIdempotent(t *testing.T) {
	for _, statement := range migrationStatements {
		if !strings.Contains(statement, "IF NOT EXISTS") {
			t.Fatalf("statement must be safe to reapply: %q", statement)
		}
	}
}
