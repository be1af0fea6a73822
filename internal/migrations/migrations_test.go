package migrations_test

import (
	"context"
	"testing"

	"github.com/afes-website/manage-back/internal/database"
	"github.com/afes-website/manage-back/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"terms", "exh_rooms", "users", "reservations", "guests", "activity_logs"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	applied, err := migrations.Run(context.Background(), db)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("first run applied nothing")
	}
	applied, err = migrations.Run(context.Background(), db)
	if err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second run applied %v, want none", applied)
	}
}

func TestMigrationsEnforceGuestInvariant(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	stmts := []string{
		`INSERT INTO terms VALUES ('t', '2026-11-03T09:00:00.000000000Z', '2026-11-03T12:00:00.000000000Z', 'GuestBlue')`,
		`INSERT INTO exh_rooms VALUES ('r', 'Room', '', 1, '2026-11-03T09:00:00.000000000Z')`,
		`INSERT INTO reservations (id, term_id, people_count) VALUES ('res', 't', 1)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	// A checked-out guest may not be inside a room.
	_, err = db.Exec(`INSERT INTO guests VALUES ('GB-00000', 't', 'res', 'r', '2026-11-03T09:00:00.000000000Z', '2026-11-03T10:00:00.000000000Z')`)
	if err == nil {
		t.Fatal("expected check constraint violation")
	}
}
