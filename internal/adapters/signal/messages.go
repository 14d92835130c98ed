package signal

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/CareCall/internal/app"
	"github.com/dkeye/CareCall/internal/domain"
)

var errBadPayload = errors.New("bad signal payload")

// Inbound envelopes. Every signaling message is a tagged variant with a
// fixed payload shape, validated here before it reaches the relay.
type roomPayload struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type sdpPayload struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	SDP    string `json:"sdp"`
}

type candidatePayload struct {
	Type      string                  `json:"type"`
	RoomID    string                  `json:"room_id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// decodeSignal validates a relayed message and returns the room plus the
// opaque payload to forward. Session descriptions go through pion's typed
// representation; the relay itself never looks inside.
func decodeSignal(kind app.SignalKind, data []byte) (domain.RoomID, json.RawMessage, error) {
	if kind == app.KindCandidate {
		var p candidatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, err
		}
		if p.RoomID == "" || p.Candidate.Candidate == "" {
			return "", nil, errBadPayload
		}
		payload, err := json.Marshal(p.Candidate)
		if err != nil {
			return "", nil, err
		}
		return domain.RoomID(p.RoomID), payload, nil
	}

	var p sdpPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil, err
	}
	if p.RoomID == "" || p.SDP == "" {
		return "", nil, errBadPayload
	}
	sd := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}
	if kind == app.KindAnswer {
		sd.Type = webrtc.SDPTypeAnswer
	}
	payload, err := json.Marshal(sd.SDP)
	if err != nil {
		return "", nil, err
	}
	return domain.RoomID(p.RoomID), payload, nil
}
