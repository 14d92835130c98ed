package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

func testDB(t *testing.T) (*History, *Users) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, u := range [][3]string{
		{"alice", "Alice", "tok-alice"},
		{"bob", "Bob", "tok-bob"},
	} {
		if _, err := db.Exec(`INSERT INTO users (id, name, token) VALUES (?, ?, ?)`, u[0], u[1], u[2]); err != nil {
			t.Fatalf("seed user %s: %v", u[0], err)
		}
	}
	return NewHistory(db), NewUsers(db)
}

func TestUsers_ResolveAndLookup(t *testing.T) {
	_, users := testDB(t)
	ctx := context.Background()

	u, err := users.Resolve(ctx, "tok-alice")
	if err != nil || u.ID != "alice" || u.Name != "Alice" {
		t.Fatalf("resolve: %+v, %v", u, err)
	}
	if _, err := users.Resolve(ctx, "bogus"); !errors.Is(err, core.ErrAuthRequired) {
		t.Fatalf("bad token: got %v, want ErrAuthRequired", err)
	}
	if _, err := users.Resolve(ctx, ""); !errors.Is(err, core.ErrAuthRequired) {
		t.Fatalf("empty token: got %v, want ErrAuthRequired", err)
	}

	if _, err := users.Lookup(ctx, "bob"); err != nil {
		t.Fatalf("lookup bob: %v", err)
	}
	if _, err := users.Lookup(ctx, "nobody"); !errors.Is(err, core.ErrUnknownParticipant) {
		t.Fatalf("unknown id: got %v, want ErrUnknownParticipant", err)
	}
}

func TestHistory_Lifecycle(t *testing.T) {
	hist, _ := testDB(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Millisecond)
	call := &domain.Call{
		RoomID:    "call_alice_bob_1",
		CallerID:  "alice",
		CalleeID:  "bob",
		Status:    domain.CallInitiated,
		StartTime: start,
	}
	if err := hist.Insert(ctx, call); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := hist.SetStatus(ctx, call.RoomID, domain.CallActive, nil); err != nil {
		t.Fatalf("set active: %v", err)
	}
	end := start.Add(42 * time.Second)
	if err := hist.SetStatus(ctx, call.RoomID, domain.CallEnded, &end); err != nil {
		t.Fatalf("set ended: %v", err)
	}

	page, err := hist.ListForUser(ctx, "bob", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCalls != 1 || len(page.Calls) != 1 {
		t.Fatalf("want one call, got %+v", page)
	}
	rec := page.Calls[0]
	if rec.CallerName != "Alice" || rec.CalleeName != "Bob" {
		t.Fatalf("names not joined: %+v", rec)
	}
	if rec.Status != domain.CallEnded {
		t.Fatalf("status: got %s", rec.Status)
	}
	if !rec.StartTime.Equal(start) {
		t.Fatalf("start time: got %v, want %v", rec.StartTime, start)
	}
	if rec.EndTime == nil || !rec.EndTime.Equal(end) {
		t.Fatalf("end time: got %v, want %v", rec.EndTime, end)
	}
}

func TestHistory_Pagination(t *testing.T) {
	hist, _ := testDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		call := &domain.Call{
			RoomID:    domain.NewRoomID("alice", "bob", base),
			CallerID:  "alice",
			CalleeID:  "bob",
			Status:    domain.CallMissed,
			StartTime: base.Add(time.Duration(i) * time.Minute),
		}
		if err := hist.Insert(ctx, call); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	page, err := hist.ListForUser(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCalls != 25 || page.TotalPages != 3 || len(page.Calls) != 10 {
		t.Fatalf("page 1: %+v", page)
	}
	// Newest first.
	if !page.Calls[0].StartTime.After(page.Calls[9].StartTime) {
		t.Fatalf("history must be ordered newest first")
	}

	last, err := hist.ListForUser(ctx, "alice", 3, 10)
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(last.Calls) != 5 || last.CurrentPage != 3 {
		t.Fatalf("page 3: %+v", last)
	}

	// Out-of-range parameters fall back to defaults.
	fallback, err := hist.ListForUser(ctx, "alice", 0, 1000)
	if err != nil {
		t.Fatalf("list fallback: %v", err)
	}
	if fallback.CurrentPage != 1 || len(fallback.Calls) != 10 {
		t.Fatalf("fallback page: %+v", fallback)
	}
}

func TestUsers_MissingCalleeForeignKey(t *testing.T) {
	hist, _ := testDB(t)
	call := &domain.Call{
		RoomID:    "call_x",
		CallerID:  "alice",
		CalleeID:  "ghost",
		Status:    domain.CallInitiated,
		StartTime: time.Now().UTC(),
	}
	if err := hist.Insert(context.Background(), call); err == nil {
		t.Fatalf("foreign keys should reject a call with an unknown callee")
	}
}
