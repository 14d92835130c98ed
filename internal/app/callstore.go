package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

type liveCall struct {
	call   domain.Call
	joined map[domain.UserID]struct{}
}

// CallStore holds every non-terminal call session. Terminal sessions are
// evicted and live on only in durable history.
type CallStore struct {
	mu      sync.Mutex
	live    map[domain.RoomID]*liveCall
	users   core.Directory
	history core.CallHistory
	now     func() time.Time
}

func NewCallStore(users core.Directory, history core.CallHistory) *CallStore {
	return &CallStore{
		live:    make(map[domain.RoomID]*liveCall),
		users:   users,
		history: history,
		now:     time.Now,
	}
}

// Create validates the callee, writes the durable record and only then
// admits the session to the live set: a live session without a durable
// backing record must not exist.
func (s *CallStore) Create(ctx context.Context, callerID, calleeID domain.UserID) (domain.Call, error) {
	if _, err := s.users.Lookup(ctx, calleeID); err != nil {
		return domain.Call{}, err
	}

	now := s.now().UTC()
	call := domain.Call{
		RoomID:    domain.NewRoomID(callerID, calleeID, now),
		CallerID:  callerID,
		CalleeID:  calleeID,
		Status:    domain.CallInitiated,
		StartTime: now,
	}
	if err := s.history.Insert(ctx, &call); err != nil {
		return domain.Call{}, err
	}

	s.mu.Lock()
	s.live[call.RoomID] = &liveCall{
		call:   call,
		joined: make(map[domain.UserID]struct{}),
	}
	s.mu.Unlock()

	log.Info().Str("module", "app.callstore").
		Str("room", string(call.RoomID)).
		Str("caller", string(callerID)).
		Str("callee", string(calleeID)).
		Msg("created call session")
	return call, nil
}

// Get returns a copy of the live session for roomID.
func (s *CallStore) Get(roomID domain.RoomID) (domain.Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc, ok := s.live[roomID]
	if !ok {
		return domain.Call{}, false
	}
	return lc.call, true
}

// Join marks id as a room member and reports whether it was the first
// explicit join for the session.
func (s *CallStore) Join(roomID domain.RoomID, id domain.UserID) (first bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc, ok := s.live[roomID]
	if !ok {
		return false, core.ErrNotFound
	}
	if !lc.call.Participant(id) {
		return false, core.ErrNotAParticipant
	}
	first = len(lc.joined) == 0
	lc.joined[id] = struct{}{}
	return first, nil
}

// Members returns the identities that have explicitly joined the room.
func (s *CallStore) Members(roomID domain.RoomID) []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc, ok := s.live[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(lc.joined))
	for id := range lc.joined {
		out = append(out, id)
	}
	return out
}

// Transition enforces the monotonic state machine. A terminal transition
// for a room that is no longer live is a no-op, which is what lets a
// disconnect-triggered cleanup race an explicit leave safely. Terminal
// commits evict the session under the lock; only the winner reaches the
// durable write, so exactly one end_time is recorded.
func (s *CallStore) Transition(ctx context.Context, roomID domain.RoomID, target domain.CallStatus) error {
	s.mu.Lock()
	lc, ok := s.live[roomID]
	if !ok {
		s.mu.Unlock()
		if target.Terminal() {
			return nil
		}
		return core.ErrNotFound
	}
	cur := lc.call.Status
	if cur == target {
		s.mu.Unlock()
		return nil
	}
	if !legalTransition(cur, target) {
		s.mu.Unlock()
		return core.ErrInvalidTransition
	}

	lc.call.Status = target
	var endTime *time.Time
	if target.Terminal() {
		t := s.now().UTC()
		lc.call.EndTime = &t
		endTime = &t
		delete(s.live, roomID)
	}
	s.mu.Unlock()

	log.Info().Str("module", "app.callstore").
		Str("room", string(roomID)).
		Str("from", string(cur)).
		Str("to", string(target)).
		Msg("call transition")

	if err := s.history.SetStatus(ctx, roomID, target, endTime); err != nil {
		// The in-memory state is already committed and, for terminal
		// states, the session evicted. Losing liveness tracking is worse
		// than a delayed history write, so log for reconciliation.
		log.Error().Err(err).Str("module", "app.callstore").
			Str("room", string(roomID)).
			Str("status", string(target)).
			Msg("history write failed, record needs reconciliation")
	}
	return nil
}

func legalTransition(from, to domain.CallStatus) bool {
	switch from {
	case domain.CallInitiated:
		return to == domain.CallActive || to == domain.CallEnded || to == domain.CallMissed
	case domain.CallActive:
		return to == domain.CallEnded
	default:
		return false
	}
}

// ForUser returns the rooms of live sessions id participates in.
func (s *CallStore) ForUser(id domain.UserID) []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomID
	for roomID, lc := range s.live {
		if lc.call.Participant(id) {
			out = append(out, roomID)
		}
	}
	return out
}

// StaleInitiated returns rooms still ringing that were started before
// cutoff. The sweeper expires them to missed.
func (s *CallStore) StaleInitiated(cutoff time.Time) []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomID
	for roomID, lc := range s.live {
		if lc.call.Status == domain.CallInitiated && lc.call.StartTime.Before(cutoff) {
			out = append(out, roomID)
		}
	}
	return out
}
