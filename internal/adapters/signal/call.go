package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/app"
	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

func (ctl *Controller) handleJoin(uid domain.UserID, conn *wsConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID := domain.RoomID(p.RoomID)

	log.Info().Str("module", "signal").Str("user", string(uid)).Str("room", p.RoomID).Msg("join call")
	if err := ctl.Orch.Join(context.Background(), roomID, uid); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			ctl.sendError(conn, "room_not_found")
		case errors.Is(err, core.ErrNotAParticipant):
			ctl.sendError(conn, "not_a_participant")
		default:
			log.Error().Err(err).Str("module", "signal").Str("room", p.RoomID).Msg("join failed")
			ctl.sendError(conn, "join_failed")
		}
		return
	}

	// Echo the join so the client can flip its UI; the peer got the same
	// event via the orchestrator push.
	ctl.sendJSON(conn, roomEvent{Type: "user_joined", UserID: uid, RoomID: roomID})
}

func (ctl *Controller) handleLeave(uid domain.UserID, conn *wsConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	roomID := domain.RoomID(p.RoomID)

	log.Info().Str("module", "signal").Str("user", string(uid)).Str("room", p.RoomID).Msg("leave call")
	if err := ctl.Orch.Leave(context.Background(), roomID, uid); err != nil {
		if errors.Is(err, core.ErrNotAParticipant) {
			ctl.sendError(conn, "not_a_participant")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("room", p.RoomID).Msg("leave failed")
		ctl.sendError(conn, "leave_failed")
		return
	}

	ctl.sendJSON(conn, roomEvent{Type: "user_left", UserID: uid, RoomID: roomID})
}

// handleRelay forwards offer/answer/candidate traffic. Invalid senders
// and dead rooms are dropped silently, never answered.
func (ctl *Controller) handleRelay(uid domain.UserID, kind app.SignalKind, data []byte) {
	roomID, payload, err := decodeSignal(kind, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad signal payload")
		return
	}
	if err := ctl.Relay.Relay(kind, roomID, uid, payload); err != nil {
		log.Warn().Err(err).Str("module", "signal").
			Str("kind", string(kind)).
			Str("room", string(roomID)).
			Str("user", string(uid)).
			Msg("signal dropped")
	}
}

func (ctl *Controller) handlePing(conn *wsConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

type roomEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	RoomID domain.RoomID `json:"room_id"`
}
