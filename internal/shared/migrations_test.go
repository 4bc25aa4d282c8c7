package shared

import (
	"testing"
)

func TestMigrations(t *testing.T) {
	t.Run("LoadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %d is missing up or down SQL", m.Version)
			}
			if i > 0 && migrations[i-1].Version >= m.Version {
				t.Error("migrations should be sorted by version")
			}
		}
	})

	t.Run("RunMigrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM copy_jobs").Scan(&count); err != nil {
			t.Errorf("copy_jobs table should exist: %v", err)
		}

		var seq int
		if err := db.QueryRow("SELECT value FROM copy_jobs_sequence WHERE id = 1").Scan(&seq); err != nil {
			t.Errorf("sequence table should be seeded: %v", err)
		}
		if seq != 0 {
			t.Errorf("expected sequence seeded at 0, got %d", seq)
		}

		// Idempotent: applying again is a no-op.
		if err := RunMigrations(db); err != nil {
			t.Errorf("re-running migrations should be a no-op: %v", err)
		}
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		if err := db.QueryRow("SELECT COUNT(*) FROM copy_jobs").Scan(new(int)); err == nil {
			t.Error("copy_jobs table should be dropped after rollback")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to rollback")
		}
	})

	t.Run("RemoveComments", func(t *testing.T) {
		sql := "SELECT 1 -- trailing comment\n-- full line comment\nFROM t"
		got := removeComments(sql)
		if got != "SELECT 1\nFROM t" {
			t.Errorf("unexpected result %q", got)
		}
	})
}
