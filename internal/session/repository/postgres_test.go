package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/db"
)

// openTestDB connects to DATABASE_URL and skips when no database is reachable.
// The schema must be migrated (go run ./cmd/migrate).
func openTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewPostgresRepository(conn)
}

func createTestUser(t *testing.T, repo *PostgresRepository) string {
	t.Helper()
	id := uuid.New().String()
	_, err := repo.db.ExecContext(context.Background(),
		`INSERT INTO users (id, login, email, password_hash, is_active, created_at)
		 VALUES ($1, $2, $3, 'x', TRUE, $4)`,
		id, "it-"+id, "it-"+id+"@example.com", time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func TestPostgres_OpenBindClose(t *testing.T) {
	repo := openTestDB(t)
	userID := createTestUser(t, repo)
	ctx := context.Background()

	sess, err := repo.Open(ctx, userID, "cli")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !sess.IsActive || sess.RefreshToken != "" {
		t.Errorf("fresh session = active %v / token %q, want active with no token", sess.IsActive, sess.RefreshToken)
	}

	if err := repo.BindRefreshToken(ctx, sess.ID, "refresh-1"); err != nil {
		t.Fatalf("BindRefreshToken: %v", err)
	}
	got, err := repo.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RefreshToken != "refresh-1" {
		t.Errorf("bound token = %q, want refresh-1", got.RefreshToken)
	}

	if err := repo.Close(ctx, sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := repo.Close(ctx, sess.ID); err != nil {
		t.Errorf("repeated Close should be a no-op, got %v", err)
	}
	got, err = repo.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsActive {
		t.Error("closed session should be inactive")
	}
}

func TestPostgres_FindActiveByDevice(t *testing.T) {
	repo := openTestDB(t)
	userID := createTestUser(t, repo)
	ctx := context.Background()

	if got, err := repo.FindActiveByDevice(ctx, userID, "cli"); err != nil || got != nil {
		t.Fatalf("FindActiveByDevice on empty = %v/%v, want nil/nil", got, err)
	}

	sess, err := repo.Open(ctx, userID, "cli")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := repo.FindActiveByDevice(ctx, userID, "cli")
	if err != nil {
		t.Fatalf("FindActiveByDevice: %v", err)
	}
	if got == nil || got.ID != sess.ID {
		t.Errorf("FindActiveByDevice = %v, want session %s", got, sess.ID)
	}

	if got, err := repo.FindActiveByDevice(ctx, userID, "browser"); err != nil || got != nil {
		t.Errorf("other device = %v/%v, want nil/nil", got, err)
	}
}

func TestPostgres_ListByUser(t *testing.T) {
	repo := openTestDB(t)
	userID := createTestUser(t, repo)
	ctx := context.Background()

	for _, agent := range []string{"cli", "cli", "browser"} {
		if _, err := repo.Open(ctx, userID, agent); err != nil {
			t.Fatalf("Open(%s): %v", agent, err)
		}
	}

	all, err := repo.ListByUser(ctx, userID, false)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListByUser = %d sessions, want 3", len(all))
	}

	unique, err := repo.ListByUser(ctx, userID, true)
	if err != nil {
		t.Fatalf("ListByUser(unique): %v", err)
	}
	if len(unique) != 2 {
		t.Errorf("ListByUser(unique) = %d sessions, want 2", len(unique))
	}
}
