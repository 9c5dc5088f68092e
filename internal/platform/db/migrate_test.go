package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/ehr/hsm/migrations"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"001_core.sql":     {Data: []byte("CREATE TABLE a (id INT);")},
		"002_roster.sql":   {Data: []byte("CREATE TABLE b (id INT);")},
		"010_indexes.sql":  {Data: []byte("CREATE INDEX i ON b (id);")},
		"README.md":        {Data: []byte("not a migration")},
		"notes_draft.sql":  {Data: []byte("-- no numeric prefix")},
		"nounderscore.sql": {Data: []byte("-- skipped")},
	}

	migrator := NewMigrator(nil, fsys)
	got, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(got))
	}
	wantVersions := []int{1, 2, 10}
	for i, v := range wantVersions {
		if got[i].Version != v {
			t.Errorf("index %d: expected version %d, got %d", i, v, got[i].Version)
		}
	}
	if got[0].Name != "001_core.sql" || got[0].SQL != "CREATE TABLE a (id INT);" {
		t.Errorf("unexpected first migration: %+v", got[0])
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	got, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no migrations, got %d", len(got))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql":  {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, fsys).LoadMigrations(); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	got, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0].Name != "001_hospital.sql" {
		t.Fatalf("expected embedded 001_hospital.sql, got %+v", got)
	}
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{1: time.Now(), 3: time.Now()}

	got := pending(all, applied)
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("expected only version 2 pending, got %+v", got)
	}
}

func TestStatuses(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	all := []Migration{{Version: 1, Name: "001_hospital.sql"}, {Version: 2, Name: "002_next.sql"}}

	got := statuses(all, map[int]time.Time{1: at})
	if len(got) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(got))
	}
	if !got[0].Applied || got[0].AppliedAt == nil || !got[0].AppliedAt.Equal(at) {
		t.Errorf("expected first applied at %v, got %+v", at, got[0])
	}
	if got[1].Applied || got[1].AppliedAt != nil {
		t.Errorf("expected second pending, got %+v", got[1])
	}
}
