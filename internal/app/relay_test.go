package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

func testRelay(t *testing.T) (*Relay, domain.RoomID, *fakeConn, *fakeConn) {
	t.Helper()
	presence := NewPresence()
	store := NewCallStore(testDirectory(), &fakeHistory{})
	call, err := store.Create(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a, b := &fakeConn{}, &fakeConn{}
	presence.Bind("alice", a)
	presence.Bind("bob", b)
	return &Relay{Presence: presence, Calls: store}, call.RoomID, a, b
}

func rawSDP(t *testing.T, sdp string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(sdp)
	if err != nil {
		t.Fatalf("marshal sdp: %v", err)
	}
	return b
}

func TestRelay_DeliversToPeer(t *testing.T) {
	r, roomID, a, b := testRelay(t)

	kinds := []SignalKind{KindOffer, KindAnswer, KindCandidate}
	for _, kind := range kinds {
		if err := r.Relay(kind, roomID, "alice", rawSDP(t, "v=0")); err != nil {
			t.Fatalf("relay %s: %v", kind, err)
		}
	}

	got := b.received(t)
	if len(got) != len(kinds) {
		t.Fatalf("peer should receive %d messages, got %d", len(kinds), len(got))
	}
	for i, kind := range kinds {
		msg := got[i]
		if msg["type"] != string(kind) {
			t.Fatalf("message %d: type %v, want %s", i, msg["type"], kind)
		}
		if msg["room_id"] != string(roomID) || msg["user_id"] != "alice" {
			t.Fatalf("message %d carries wrong routing fields: %v", i, msg)
		}
		if kind == KindCandidate {
			if _, ok := msg["candidate"]; !ok {
				t.Fatalf("candidate message lost its payload: %v", msg)
			}
		} else if msg["sdp"] != "v=0" {
			t.Fatalf("sdp message lost its payload: %v", msg)
		}
	}
	if len(a.received(t)) != 0 {
		t.Fatalf("sender must not receive its own signal")
	}
}

func TestRelay_RejectsNonParticipant(t *testing.T) {
	r, roomID, a, b := testRelay(t)
	mallory := &fakeConn{}
	r.Presence.Bind("mallory", mallory)

	err := r.Relay(KindOffer, roomID, "mallory", rawSDP(t, "v=0"))
	if !errors.Is(err, core.ErrNotAParticipant) {
		t.Fatalf("got %v, want ErrNotAParticipant", err)
	}
	if len(a.received(t))+len(b.received(t)) != 0 {
		t.Fatalf("nothing may be delivered for a non-participant sender")
	}
}

func TestRelay_UnknownRoom(t *testing.T) {
	r, _, _, _ := testRelay(t)
	err := r.Relay(KindOffer, "no-such-room", "alice", rawSDP(t, "v=0"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRelay_OfflinePeerDropsSilently(t *testing.T) {
	r, roomID, _, b := testRelay(t)
	r.Presence.Unbind("bob")

	// Best-effort contract: no error, no queueing.
	if err := r.Relay(KindOffer, roomID, "alice", rawSDP(t, "v=0")); err != nil {
		t.Fatalf("offline peer must be a silent drop, got %v", err)
	}
	if len(b.received(t)) != 0 {
		t.Fatalf("disconnected peer must not receive anything")
	}
}
