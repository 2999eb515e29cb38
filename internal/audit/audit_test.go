package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/roster/internal/mail"
)

func TestToPgUUID(t *testing.T) {
	id := uuid.New()
	got, err := toPgUUID(id.String())
	if err != nil {
		t.Fatalf("toPgUUID() error = %v", err)
	}
	if !got.Valid || uuid.UUID(got.Bytes) != id {
		t.Errorf("toPgUUID() = %v, want %v", got, id)
	}
	if _, err := toPgUUID("not-a-uuid"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestToPgText(t *testing.T) {
	if toPgText("").Valid {
		t.Error("empty string should be NULL")
	}
	if got := toPgText("x"); !got.Valid || got.String != "x" {
		t.Errorf("toPgText(x) = %+v", got)
	}
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	if err := s.Record(context.Background(), "s", mail.Result{}); err != nil {
		t.Errorf("Record() error = %v", err)
	}
	if got, err := s.Recent(context.Background(), 5); err != nil || got != nil {
		t.Errorf("Recent() = %v, %v", got, err)
	}
}

// Runs against a real database when ROSTER_TEST_DATABASE_URL is set.
func TestPgStore(t *testing.T) {
	url := os.Getenv("ROSTER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROSTER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store, err := NewPgStore(ctx, pool)
	if err != nil {
		t.Fatal(err)
	}

	res := mail.Result{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Duration:  1500 * time.Millisecond,
		Sent:      1,
		Skipped:   1,
		Outcomes: []mail.Outcome{
			{RowID: 1, Email: "amy@example.com", Status: mail.StatusSent},
			{RowID: 2, Status: mail.StatusSkipped},
		},
	}
	if err := store.Record(ctx, "sess", res); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM mail_batches WHERE id = $1", res.ID)
	})

	recent, err := store.Recent(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range recent {
		if b.ID == res.ID {
			if b.Sent != 1 || b.Skipped != 1 || b.Duration != res.Duration || b.SessionID != "sess" {
				t.Errorf("stored batch = %+v", b)
			}
			return
		}
	}
	t.Errorf("batch %s not in Recent()", res.ID)
}
