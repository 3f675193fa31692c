package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	all, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(all) != 1 || all[0].version != "001_initial.sql" {
		t.Fatalf("expected only 001_initial.sql, got %+v", all)
	}
	for _, want := range []string{"facial_templates", "UNIQUE INDEX IF NOT EXISTS users_username_key", "UNIQUE INDEX IF NOT EXISTS facial_templates_user_id_key"} {
		if !strings.Contains(all[0].sql, want) {
			t.Errorf("expected initial migration to contain %q", want)
		}
	}
}

func TestLoadMigrations_SortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_later.sql":  {Data: []byte("SELECT 10")},
		"m/002_second.sql": {Data: []byte("SELECT 2")},
		"m/README.md":      {Data: []byte("docs")},
	}

	all, err := loadMigrations(fsys, "m")
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(all) != 2 || all[0].version != "002_second.sql" || all[1].version != "010_later.sql" {
		t.Errorf("unexpected migrations %+v", all)
	}
}

func TestPending(t *testing.T) {
	all := []migration{{version: "001.sql"}, {version: "002.sql"}, {version: "003.sql"}}

	got := pending(all, map[string]bool{"001.sql": true, "003.sql": true})

	if len(got) != 1 || got[0].version != "002.sql" {
		t.Errorf("pending() = %+v, want only 002.sql", got)
	}
}
