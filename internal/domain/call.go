package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoomID string

// CallStatus values are stored as-is in the durable record.
type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallActive    CallStatus = "active"
	CallEnded     CallStatus = "ended"
	CallMissed    CallStatus = "missed"
)

// Terminal reports whether no further transition is allowed from s.
func (s CallStatus) Terminal() bool {
	return s == CallEnded || s == CallMissed
}

// Call is one signaling session between exactly two users. RoomID and the
// participant pair never change after creation; Status only moves forward.
type Call struct {
	RoomID    RoomID     `json:"room_id"`
	CallerID  UserID     `json:"caller_id"`
	CalleeID  UserID     `json:"callee_id"`
	Status    CallStatus `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

func (c *Call) Participant(id UserID) bool {
	return id == c.CallerID || id == c.CalleeID
}

// PeerOf returns the other participant. ok is false when id is neither.
func (c *Call) PeerOf(id UserID) (UserID, bool) {
	switch id {
	case c.CallerID:
		return c.CalleeID, true
	case c.CalleeID:
		return c.CallerID, true
	default:
		return "", false
	}
}

// NewRoomID derives a room identifier from both participants and the
// creation instant. The uuid suffix keeps two calls between the same pair
// started within the same second apart.
func NewRoomID(caller, callee UserID, now time.Time) RoomID {
	return RoomID(fmt.Sprintf("call_%s_%s_%d_%s", caller, callee, now.Unix(), uuid.NewString()[:8]))
}
