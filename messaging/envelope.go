package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RawEnvelope is used for two-stage unmarshalling: first decode the envelope,
// then decode payload based on msg_type.
type RawEnvelope struct {
	MsgType   string          `json:"msg_type"`
	MsgID     string          `json:"msg_id"`
	StationID string          `json:"station_id"`
	ReplyTo   string          `json:"reply_to"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DecodeEnvelope unmarshals a raw message into a typed Envelope with the correct payload type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	env := &Envelope{
		MsgType:   raw.MsgType,
		MsgID:     raw.MsgID,
		StationID: raw.StationID,
		ReplyTo:   raw.ReplyTo,
		Timestamp: raw.Timestamp,
	}

	var payload any
	switch raw.MsgType {
	case TypeAllocate:
		var p AllocateCommand
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeRelease:
		var p ReleaseCommand
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeMoveToBin:
		var p MoveToBinCommand
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeMoveToPosition:
		var p MoveToPositionCommand
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown msg_type: %s", raw.MsgType)
	}
	env.Payload = payload
	return env, nil
}

// allocate commands may omit the payload entirely
func decodePayload(raw RawEnvelope, target any) error {
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.MsgType, err)
	}
	return nil
}

// NewEnvelope creates an outbound envelope with a new UUID and timestamp.
func NewEnvelope(msgType, stationID string, payload any) *Envelope {
	return &Envelope{
		MsgType:   msgType,
		MsgID:     uuid.New().String(),
		StationID: stationID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
