package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubConnUpsertsAndFilters(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	insert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, args := range [][]driver.NamedValue{
		{{Value: "a"}, {Value: []byte("1")}},
		{{Value: "b"}, {Value: []byte("2")}},
		{{Value: "a"}, {Value: []byte("3")}},
	} {
		if _, err := conn.ExecContext(ctx, insert, args); err != nil {
			t.Fatalf("ExecContext: %v", err)
		}
	}
	if n := len(conn.Rows("state")); n != 2 {
		t.Fatalf("expected upsert to keep two rows, got %d", n)
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(dest[0].([]byte)) != "3" {
		t.Fatalf("unexpected payload %v", dest[0])
	}
	if err := rows.Next(dest); err == nil {
		t.Fatalf("expected a single matching row")
	}
}
