package engine

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"time"
)

type EventType int

var eventNames = map[EventType]string{
	EventRobotAllocated:        "robot_allocated",
	EventAllocationFailed:      "allocation_failed",
	EventRobotReleased:         "robot_released",
	EventRobotUpdated:          "robot_updated",
	EventMoveRequested:         "move_requested",
	EventMoveQueued:            "move_queued",
	EventMoveFailed:            "move_failed",
	EventMissionStateChanged:   "mission_state_changed",
	EventFleetConnected:        "fleet_connected",
	EventFleetDisconnected:     "fleet_disconnected",
	EventMessagingConnected:    "messaging_connected",
	EventMessagingDisconnected: "messaging_disconnected",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

type SubscriberID int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type subscriber struct {
	id    SubscriberID
	fn    func(Event)
	types []EventType
}

func (s subscriber) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// EventBus fans events out synchronously, in subscription order. A panicking
// handler is logged and skipped; the remaining handlers still run.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn for every event type.
func (eb *EventBus) Subscribe(fn func(Event)) SubscriberID {
	return eb.SubscribeTypes(fn)
}

// SubscribeTypes registers fn for the listed types only; no types means all.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	eb.subs = append(eb.subs, subscriber{id: eb.nextID, fn: fn, types: slices.Clone(types)})
	return eb.nextID
}

func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subs = slices.DeleteFunc(eb.subs, func(s subscriber) bool { return s.id == id })
}

func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	subs := slices.Clone(eb.subs)
	eb.mu.RUnlock()

	for _, s := range subs {
		if s.wants(evt.Type) {
			deliver(s, evt)
		}
	}
}

func deliver(s subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: subscriber %d panicked on %s: %v", s.id, evt.Type, r)
		}
	}()
	s.fn(evt)
}
