package postgres

import "testing"

func TestMigrationDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h/db":   "pgx5://u:p@h/db",
		"postgresql://u:p@h/db": "pgx5://u:p@h/db",
		"pgx5://u:p@h/db":       "pgx5://u:p@h/db",
	}
	for in, want := range cases {
		if got := MigrationDSN(in); got != want {
			t.Fatalf("MigrationDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
