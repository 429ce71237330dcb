package data

import "testing"

func TestDSN(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "")
	t.Setenv("PGUSER", "")
	t.Setenv("PGPASSWORD", "hunter2")
	t.Setenv("PGDATABASE", "")

	want := "host=db.internal user=postgres password=hunter2 dbname=surfdash port=5432 sslmode=disable TimeZone=UTC"
	if got := DSN(""); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	url := "postgres://surf:pw@localhost/reports"
	if got := DSN(url); got != url {
		t.Errorf("got %q, want DATABASE_URL to win", got)
	}
}

func TestTableName(t *testing.T) {
	if got := (Report{}).TableName(); got != "surf_reports" {
		t.Errorf("got %q", got)
	}
}
