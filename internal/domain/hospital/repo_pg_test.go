package hospital

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/hsm/internal/platform/db"
	"github.com/ehr/hsm/migrations"
)

// Runs against a real database only when HSM_TEST_DATABASE_URL is set.
func TestSnapshotRepoPG(t *testing.T) {
	url := os.Getenv("HSM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HSM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	resetPG(t, pool)
	t.Cleanup(func() { resetPG(t, pool) })

	exerciseRepository(t, NewSnapshotRepoPG(pool))
}

func resetPG(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE doctor, patient, snapshot_meta`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
