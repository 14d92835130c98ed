package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// History persists one row per call session.
type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) Insert(ctx context.Context, call *domain.Call) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO calls (room_id, caller_id, callee_id, start_time, status)
		VALUES (?, ?, ?, ?, ?)`,
		string(call.RoomID),
		string(call.CallerID),
		string(call.CalleeID),
		call.StartTime.Format(time.RFC3339Nano),
		string(call.Status),
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (h *History) SetStatus(ctx context.Context, roomID domain.RoomID, status domain.CallStatus, endTime *time.Time) error {
	var err error
	if endTime != nil {
		_, err = h.db.ExecContext(ctx,
			`UPDATE calls SET status = ?, end_time = ? WHERE room_id = ?`,
			string(status), endTime.Format(time.RFC3339Nano), string(roomID))
	} else {
		_, err = h.db.ExecContext(ctx,
			`UPDATE calls SET status = ? WHERE room_id = ?`,
			string(status), string(roomID))
	}
	if err != nil {
		return fmt.Errorf("update call %s: %w", roomID, err)
	}
	return nil
}

func (h *History) ListForUser(ctx context.Context, id domain.UserID, page, perPage int) (*core.CallPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	var total int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM calls WHERE caller_id = ? OR callee_id = ?`,
		string(id), string(id)).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT c.room_id, caller.name, callee.name, c.start_time, c.end_time, c.status
		FROM calls c
		JOIN users caller ON caller.id = c.caller_id
		JOIN users callee ON callee.id = c.callee_id
		WHERE c.caller_id = ? OR c.callee_id = ?
		ORDER BY c.start_time DESC
		LIMIT ? OFFSET ?`,
		string(id), string(id), perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	calls := make([]core.CallRecord, 0, perPage)
	for rows.Next() {
		var (
			rec     core.CallRecord
			roomID  string
			started string
			ended   sql.NullString
			status  string
		)
		if err := rows.Scan(&roomID, &rec.CallerName, &rec.CalleeName, &started, &ended, &status); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		rec.RoomID = domain.RoomID(roomID)
		rec.Status = domain.CallStatus(status)
		if rec.StartTime, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse start_time of %s: %w", roomID, err)
		}
		if ended.Valid {
			t, err := time.Parse(time.RFC3339Nano, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse end_time of %s: %w", roomID, err)
			}
			rec.EndTime = &t
		}
		calls = append(calls, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}

	return &core.CallPage{
		TotalCalls:  total,
		CurrentPage: page,
		TotalPages:  (total + perPage - 1) / perPage,
		Calls:       calls,
	}, nil
}
