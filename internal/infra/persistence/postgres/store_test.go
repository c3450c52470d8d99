package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"booktrack/internal/infra/persistence/postgres/testutil"
	"booktrack/pkg/domain"
)

func openStub(t *testing.T) (*Backend, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	b, err := New(context.Background(), "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, conn
}

func TestNewEnsuresStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestSaveUpsertsSingleRow(t *testing.T) {
	b, conn := openStub(t)
	ctx := context.Background()
	if _, err := b.Load(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	for _, payload := range []string{`{"v":1}`, `{"v":2}`} {
		if err := b.Save(ctx, []byte(payload)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	rows := conn.Rows("state")
	if len(rows) != 1 || rows[0]["bucket"] != DefaultBucket {
		t.Fatalf("expected one snapshot row, got %v", rows)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("unexpected payload %s", got)
	}
}

func TestSaveSurfacesDriverFailures(t *testing.T) {
	b, conn := openStub(t)
	ctx := context.Background()
	conn.FailBegin = true
	if err := b.Save(ctx, []byte("{}")); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := b.Save(ctx, []byte("{}")); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	conn.FailCommit = false
	conn.FailQuery = true
	if _, err := b.Load(ctx); err == nil || errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected query failure, got %v", err)
	}
}

func TestNewFailsWhenPingFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := New(context.Background(), "", ""); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewFailsWhenOpenFails(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := New(context.Background(), "postgres://x", ""); err == nil {
		t.Fatalf("expected open failure")
	}
}

// TestBackendAgainstServer runs against BOOKTRACK_TEST_POSTGRES_DSN when set.
func TestBackendAgainstServer(t *testing.T) {
	dsn := os.Getenv("BOOKTRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skipf("BOOKTRACK_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bucket := "test-" + time.Now().Format("150405.000000")
	b, err := New(ctx, dsn, bucket)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	defer func() {
		_, _ = b.DB().Exec(`DELETE FROM state WHERE bucket = $1`, bucket)
		_ = b.Close()
	}()
	if err := b.Save(ctx, []byte(`{"courses": []}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(string(got), `"courses"`) {
		t.Fatalf("unexpected payload %s", got)
	}
}
