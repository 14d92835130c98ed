package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// Orchestrator coordinates the presence registry and the call store for
// the start/join/leave/disconnect flows. Every push is best-effort; the
// call store is the source of truth.
type Orchestrator struct {
	Presence *Presence
	Calls    *CallStore
}

func NewOrchestrator(presence *Presence, calls *CallStore) *Orchestrator {
	o := &Orchestrator{Presence: presence, Calls: calls}
	presence.OnUnbind(o.onDisconnect)
	return o
}

type incomingCallMsg struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"room_id"`
	CallerID   domain.UserID `json:"caller_id"`
	CallerName string        `json:"caller_name"`
}

type roomEventMsg struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	RoomID domain.RoomID `json:"room_id"`
}

// Start creates the session and, when the callee is online, pushes an
// advisory incoming_call. The callee still has to join explicitly.
func (o *Orchestrator) Start(ctx context.Context, caller *domain.User, calleeID domain.UserID) (domain.Call, error) {
	call, err := o.Calls.Create(ctx, caller.ID, calleeID)
	if err != nil {
		return domain.Call{}, err
	}
	o.push(calleeID, incomingCallMsg{
		Type:       "incoming_call",
		RoomID:     call.RoomID,
		CallerID:   caller.ID,
		CallerName: caller.Name,
	})
	return call, nil
}

// Join adds id to the room membership, activates the session on the first
// join and tells the other participant, if reachable.
func (o *Orchestrator) Join(ctx context.Context, roomID domain.RoomID, id domain.UserID) error {
	first, err := o.Calls.Join(roomID, id)
	if err != nil {
		return err
	}
	if first {
		if err := o.Calls.Transition(ctx, roomID, domain.CallActive); err != nil {
			// Only reachable when a cleanup raced the join; the session is
			// already terminal, so there is nothing to surface.
			log.Warn().Err(err).Str("module", "app.orchestrator").
				Str("room", string(roomID)).
				Msg("activate after join")
		}
	}
	if call, ok := o.Calls.Get(roomID); ok {
		if peer, ok := call.PeerOf(id); ok {
			o.push(peer, roomEventMsg{Type: "user_joined", UserID: id, RoomID: roomID})
		}
	}
	return nil
}

// Leave ends the session for both sides. The remaining participant learns
// via user_left and is expected to leave too. Leaving an already-ended
// room is a no-op so duplicate cleanups stay quiet.
func (o *Orchestrator) Leave(ctx context.Context, roomID domain.RoomID, id domain.UserID) error {
	call, ok := o.Calls.Get(roomID)
	if !ok {
		return nil
	}
	if !call.Participant(id) {
		return core.ErrNotAParticipant
	}
	return o.end(ctx, call, id, domain.CallEnded)
}

// Reject cancels a ringing call: caller-side cancel or callee-side
// decline. Only legal while the session is still initiated.
func (o *Orchestrator) Reject(ctx context.Context, roomID domain.RoomID, id domain.UserID) error {
	call, ok := o.Calls.Get(roomID)
	if !ok {
		return core.ErrNotFound
	}
	if !call.Participant(id) {
		return core.ErrNotAParticipant
	}
	return o.end(ctx, call, id, domain.CallMissed)
}

func (o *Orchestrator) end(ctx context.Context, call domain.Call, actor domain.UserID, target domain.CallStatus) error {
	if err := o.Calls.Transition(ctx, call.RoomID, target); err != nil {
		return err
	}
	if peer, ok := call.PeerOf(actor); ok {
		o.push(peer, roomEventMsg{Type: "user_left", UserID: actor, RoomID: call.RoomID})
	}
	return nil
}

// onDisconnect runs as the presence unbind hook: end every live session
// the vanished user was part of, exactly as an explicit leave would.
func (o *Orchestrator) onDisconnect(id domain.UserID) {
	ctx := context.Background()
	for _, roomID := range o.Calls.ForUser(id) {
		call, ok := o.Calls.Get(roomID)
		if !ok {
			continue
		}
		if err := o.end(ctx, call, id, domain.CallEnded); err != nil {
			log.Error().Err(err).Str("module", "app.orchestrator").
				Str("room", string(roomID)).
				Str("user", string(id)).
				Msg("disconnect cleanup")
		}
	}
}

// ExpireStale moves calls that have been ringing since before cutoff to
// missed. Returns how many were expired.
func (o *Orchestrator) ExpireStale(ctx context.Context, cutoff time.Time) int {
	n := 0
	for _, roomID := range o.Calls.StaleInitiated(cutoff) {
		if err := o.Calls.Transition(ctx, roomID, domain.CallMissed); err != nil {
			continue
		}
		n++
		log.Info().Str("module", "app.orchestrator").
			Str("room", string(roomID)).
			Msg("expired unanswered call")
	}
	return n
}

func (o *Orchestrator) push(id domain.UserID, v any) {
	conn, ok := o.Presence.Lookup(id)
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("push marshal")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").
			Str("user", string(id)).
			Msg("push dropped")
	}
}
