package core

import (
	"context"
	"time"

	"github.com/dkeye/CareCall/internal/domain"
)

// Frame is a raw encoded signaling message.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Directory resolves identities. It is an external collaborator: given an
// opaque credential, resolve a user or fail.
type Directory interface {
	// Resolve maps a credential to a user. Returns ErrAuthRequired when
	// the credential does not map to anyone.
	Resolve(ctx context.Context, token string) (*domain.User, error)
	// Lookup fetches a user by id. Returns ErrUnknownParticipant when the
	// id does not exist.
	Lookup(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// CallHistory is the durable record collaborator. One row per call
// session, written at creation and updated on every transition.
type CallHistory interface {
	Insert(ctx context.Context, call *domain.Call) error
	SetStatus(ctx context.Context, roomID domain.RoomID, status domain.CallStatus, endTime *time.Time) error
	ListForUser(ctx context.Context, id domain.UserID, page, perPage int) (*CallPage, error)
}

// CallRecord is the read view of a historical call.
type CallRecord struct {
	RoomID     domain.RoomID     `json:"room_id"`
	CallerName string            `json:"caller_name"`
	CalleeName string            `json:"callee_name"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    *time.Time        `json:"end_time"`
	Status     domain.CallStatus `json:"status"`
}

type CallPage struct {
	TotalCalls  int          `json:"total_calls"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
	Calls       []CallRecord `json:"calls"`
}
