package db

import "testing"

func TestIsPostgres(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost:5432/inv?sslmode=disable": true,
		"postgresql://localhost/inv":                        true,
		"host=localhost user=inv dbname=inv":                true,
		"file:invoices.db?_fk=1":                            false,
		"invoices.db":                                       false,
		"file::memory:?cache=shared":                        false,
	}
	for dsn, want := range cases {
		if got := IsPostgres(dsn); got != want {
			t.Errorf("IsPostgres(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestNormalizeDSN(t *testing.T) {
	if got := NormalizeDSN(`  "postgres://u@h/db"  `); got != "postgres://u@h/db" {
		t.Fatalf("url form: %q", got)
	}
	got := NormalizeDSN("host=localhost   user=inv  dbname=inv")
	if got != "host=localhost user=inv dbname=inv sslmode=disable" {
		t.Fatalf("kv form: %q", got)
	}
	if got := NormalizeDSN("file:invoices.db?_fk=1"); got != "file:invoices.db?_fk=1" {
		t.Fatalf("sqlite path mangled: %q", got)
	}
}
