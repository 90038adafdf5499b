package observer

import (
	"encoding/json"
	"time"

	"github.com/crystaldolphin/wadash/internal/schema"
)

type MessageType string

const (
	// Outbound.
	MsgStatusChange MessageType = "status_change"
	MsgQRCode       MessageType = "qr_code"

	// Inbound.
	MsgRestart MessageType = "restart"
)

// Envelope is one frame on the observer socket.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// RawEnvelope is used when decoding frames whose payload type depends on Type.
type RawEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type StatusPayload struct {
	Phase   schema.Phase `json:"phase"`
	Message string       `json:"message"`
	Seq     uint64       `json:"seq"`
	Since   time.Time    `json:"since"`
}

type QRPayload struct {
	QR  string `json:"qr"`
	Seq uint64 `json:"seq"`
}

// NewStatusPayload converts a state to its wire shape. The pairing token is
// never part of it; it travels only in a qr_code frame.
func NewStatusPayload(s schema.ConnectionState) StatusPayload {
	return StatusPayload{
		Phase:   s.Phase(),
		Message: s.Message(),
		Seq:     s.Seq(),
		Since:   s.Since(),
	}
}

// EncodeState renders the frames for one state: a status_change, followed by
// a qr_code while the state is awaiting pairing.
func EncodeState(s schema.ConnectionState) ([][]byte, error) {
	status, err := json.Marshal(Envelope{Type: MsgStatusChange, Payload: NewStatusPayload(s)})
	if err != nil {
		return nil, err
	}
	frames := [][]byte{status}

	if s.Is(schema.PhaseAwaitingPairing) && s.HasPairingToken() {
		qr, err := json.Marshal(Envelope{Type: MsgQRCode, Payload: QRPayload{QR: s.PairingToken(), Seq: s.Seq()}})
		if err != nil {
			return nil, err
		}
		frames = append(frames, qr)
	}
	return frames, nil
}
