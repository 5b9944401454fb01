package database

import (
	"io/fs"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_kv_store.sql", 1, true},
		{"012_add_index.sql", 12, true},
		{"000_zero.sql", 0, false},
		{"readme.md", 0, false},
		{"abc_kv.sql", 0, false},
		{"002_kv.txt", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			version, ok := migrationVersion(tc.name)
			if ok != tc.ok || version != tc.version {
				t.Errorf("Expected (%d, %v), got (%d, %v)", tc.version, tc.ok, version, ok)
			}
		})
	}
}

func TestEmbeddedMigrations_Numbered(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	for _, e := range entries {
		if _, ok := migrationVersion(e.Name()); !ok {
			t.Errorf("migration %s has no numeric prefix", e.Name())
		}
	}
}
