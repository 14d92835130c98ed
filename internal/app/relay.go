package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// SignalKind tags the three relayed message kinds.
type SignalKind string

const (
	KindOffer     SignalKind = "offer"
	KindAnswer    SignalKind = "answer"
	KindCandidate SignalKind = "ice_candidate"
)

// Relay routes handshake payloads between the two participants of a room.
// It is stateless per message: no queue, no retry, no ordering. A peer
// that is not currently bound simply misses the message and must restart
// signaling from the application layer after reconnecting.
type Relay struct {
	Presence *Presence
	Calls    *CallStore
}

type relayEnvelope struct {
	Type      SignalKind      `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	RoomID    domain.RoomID   `json:"room_id"`
	UserID    domain.UserID   `json:"user_id"`
}

// Relay validates the sender against the room's participant pair and
// delivers payload to the other participant's connection, if any. The
// payload is opaque: the relay never interprets SDP or candidates.
func (r *Relay) Relay(kind SignalKind, roomID domain.RoomID, senderID domain.UserID, payload json.RawMessage) error {
	call, ok := r.Calls.Get(roomID)
	if !ok {
		return core.ErrNotFound
	}
	peer, ok := call.PeerOf(senderID)
	if !ok {
		return core.ErrNotAParticipant
	}

	conn, ok := r.Presence.Lookup(peer)
	if !ok {
		// Best-effort: both peers are expected to be online during the
		// handshake window.
		log.Debug().Str("module", "app.relay").
			Str("room", string(roomID)).
			Str("peer", string(peer)).
			Str("kind", string(kind)).
			Msg("peer offline, signal dropped")
		return nil
	}

	env := relayEnvelope{Type: kind, RoomID: roomID, UserID: senderID}
	if kind == KindCandidate {
		env.Candidate = payload
	} else {
		env.SDP = payload
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").
			Str("room", string(roomID)).
			Str("peer", string(peer)).
			Msg("signal send dropped")
	}
	return nil
}
