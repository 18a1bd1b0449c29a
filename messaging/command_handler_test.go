package messaging

import (
	"encoding/json"
	"fmt"
	"testing"

	"robopool/dispatch"
	"robopool/fleet"
	"robopool/store"
)

type mockDispatcher struct {
	allocated []string
	released  []string
	bins      []string
	positions []fleet.Position
	err       error
}

func (m *mockDispatcher) Allocate(robotType string) (*store.Robot, error) {
	m.allocated = append(m.allocated, robotType)
	if m.err != nil {
		return nil, m.err
	}
	return &store.Robot{ID: "R1"}, nil
}

func (m *mockDispatcher) Release(resourceID string) (*store.Robot, error) {
	m.released = append(m.released, resourceID)
	if m.err != nil {
		return nil, m.err
	}
	return &store.Robot{ID: "R1"}, nil
}

func (m *mockDispatcher) MoveToBin(resourceID, binID string) (*dispatch.Move, error) {
	m.bins = append(m.bins, binID)
	if m.err != nil {
		return nil, m.err
	}
	return &dispatch.Move{ID: "mv1"}, nil
}

func (m *mockDispatcher) MoveToPosition(resourceID string, pos fleet.Position, mapName string) (*dispatch.Move, error) {
	m.positions = append(m.positions, pos)
	if m.err != nil {
		return nil, m.err
	}
	return &dispatch.Move{ID: "mv2"}, nil
}

type outboxEntry struct {
	topic   string
	payload []byte
	msgType string
}

type mockOutbox struct {
	entries []outboxEntry
}

func (m *mockOutbox) EnqueueOutbox(topic string, payload []byte, msgType, stationID string) error {
	m.entries = append(m.entries, outboxEntry{topic, payload, msgType})
	return nil
}

func TestRouteCommands(t *testing.T) {
	d := &mockDispatcher{}
	out := &mockOutbox{}
	h := NewCommandHandler(d, out, "robopool", "robopool.events")

	route(h, []byte(`{"msg_type":"robot.allocate","msg_id":"1","payload":{"robot_type":"material_transport"}}`))
	route(h, []byte(`{"msg_type":"robot.release","msg_id":"2","payload":{"resource_id":"EWM-1"}}`))
	route(h, []byte(`{"msg_type":"robot.move_to_bin","msg_id":"3","payload":{"resource_id":"EWM-1","bin_id":"BIN-7"}}`))
	route(h, []byte(`{"msg_type":"robot.move_to_position","msg_id":"4","payload":{"resource_id":"EWM-1","position":{"x":1,"y":2,"name":"P"}}}`))
	route(h, []byte(`garbage`))

	if len(d.allocated) != 1 || d.allocated[0] != "material_transport" {
		t.Errorf("allocated = %v", d.allocated)
	}
	if len(d.released) != 1 || d.released[0] != "EWM-1" {
		t.Errorf("released = %v", d.released)
	}
	if len(d.bins) != 1 || d.bins[0] != "BIN-7" {
		t.Errorf("bins = %v", d.bins)
	}
	if len(d.positions) != 1 || d.positions[0].Name != "P" {
		t.Errorf("positions = %v", d.positions)
	}
	if len(out.entries) != 0 {
		t.Errorf("unexpected rejections: %d", len(out.entries))
	}
}

func TestCommandRejectedToReplyTopic(t *testing.T) {
	d := &mockDispatcher{err: fmt.Errorf("resource EWM-9: %w", store.ErrUnknownResource)}
	out := &mockOutbox{}
	h := NewCommandHandler(d, out, "robopool", "robopool.events")

	route(h, []byte(`{"msg_type":"robot.release","msg_id":"cmd-7","reply_to":"ewm.replies","payload":{"resource_id":"EWM-9"}}`))

	if len(out.entries) != 1 {
		t.Fatalf("rejections = %d, want 1", len(out.entries))
	}
	e := out.entries[0]
	if e.topic != "ewm.replies" || e.msgType != TypeCommandRejected {
		t.Errorf("entry topic=%q type=%q", e.topic, e.msgType)
	}
	var env struct {
		Payload CommandRejected `json:"payload"`
	}
	if err := json.Unmarshal(e.payload, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Payload.CommandID != "cmd-7" || env.Payload.CommandType != TypeRelease {
		t.Errorf("rejection = %+v", env.Payload)
	}
}

func TestAllocateExhaustionNotRejected(t *testing.T) {
	d := &mockDispatcher{err: store.ErrNoFreeRobot}
	out := &mockOutbox{}
	h := NewCommandHandler(d, out, "robopool", "robopool.events")

	route(h, []byte(`{"msg_type":"robot.allocate","msg_id":"1"}`))
	if len(out.entries) != 0 {
		t.Errorf("exhaustion should not be rejected, got %d entries", len(out.entries))
	}
}

func TestMoveToBinRequiresBin(t *testing.T) {
	d := &mockDispatcher{}
	out := &mockOutbox{}
	h := NewCommandHandler(d, out, "robopool", "robopool.events")

	route(h, []byte(`{"msg_type":"robot.move_to_bin","msg_id":"1","payload":{"resource_id":"EWM-1"}}`))
	if len(d.bins) != 0 {
		t.Error("dispatcher should not be called without a bin")
	}
	if len(out.entries) != 1 || out.entries[0].topic != "robopool.events" {
		t.Errorf("entries = %+v", out.entries)
	}
}
