package engine

import (
	"fmt"
	"strconv"

	"robopool/messaging"
	"robopool/store"
)

func (e *Engine) wireEventHandlers() {
	// Allocation outcomes: audit and publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RobotAllocatedEvent)
		e.logFn("engine: robot %s (%s) allocated for resource %s", ev.RobotID, ev.Vendor, ev.ResourceID)
		e.db.AppendAudit("robot", ev.RobotID, "allocated", store.FlagNo, store.FlagYes, "system")
		e.publish(messaging.TypeRobotAllocated, messaging.RobotAllocated{
			RobotID:    ev.RobotID,
			RobotName:  ev.RobotName,
			Vendor:     ev.Vendor,
			ResourceID: ev.ResourceID,
			LeaseID:    ev.LeaseID,
		})
	}, EventRobotAllocated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(AllocationFailedEvent)
		e.logFn("engine: allocation of %q failed: %s", ev.RobotType, ev.Reason)
		e.db.AppendAudit("pool", ev.RobotType, "allocation_failed", "", ev.Reason, "system")
		e.publish(messaging.TypeAllocationFailed, messaging.AllocationFailed{
			RobotType: ev.RobotType,
			Reason:    ev.Reason,
		})
	}, EventAllocationFailed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RobotReleasedEvent)
		e.logFn("engine: robot %s released from resource %s", ev.RobotID, ev.ResourceID)
		e.db.AppendAudit("robot", ev.RobotID, "released", ev.LeaseID, store.FlagNo, "system")
		e.publish(messaging.TypeRobotReleased, messaging.RobotReleased{
			RobotID:    ev.RobotID,
			Vendor:     ev.Vendor,
			ResourceID: ev.ResourceID,
		})
	}, EventRobotReleased)

	// Inventory edits: audit only
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RobotUpdatedEvent)
		e.db.AppendAudit("robot", ev.RobotID, ev.Action, "", ev.Detail, ev.Actor)
	}, EventRobotUpdated)

	// Moves
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MoveRequestedEvent)
		e.db.AppendAudit("robot", ev.Move.RobotID, "move_requested", "", fmt.Sprintf("%s %s", ev.Move.Kind, ev.Move.Target), "system")
	}, EventMoveRequested)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MoveQueuedEvent)
		e.logFn("engine: move %s queued for robot %s (queue %d, mission %s)", ev.Move.ID, ev.Move.RobotID, ev.Result.QueueID, ev.Result.MissionID)
		e.db.AppendAudit("robot", ev.Move.RobotID, "move_queued", "", fmt.Sprintf("%s %s queue=%d", ev.Move.Kind, ev.Move.Target, ev.Result.QueueID), "system")
		if tracker := e.Tracker(ev.Move.Vendor); tracker != nil && ev.Result.QueueID > 0 {
			tracker.Track(ev.Result.QueueID, ev.Result.MissionID, ev.Move.RobotName)
			e.logFn("engine: tracking %s queue entry %d for robot %s", ev.Move.Vendor, ev.Result.QueueID, ev.Move.RobotName)
		}
		e.publish(messaging.TypeMoveQueued, messaging.MoveQueued{
			MoveID:     ev.Move.ID,
			Kind:       ev.Move.Kind,
			RobotID:    ev.Move.RobotID,
			ResourceID: ev.Move.ResourceID,
			Target:     ev.Move.Target,
			QueueID:    ev.Result.QueueID,
			MissionID:  ev.Result.MissionID,
			PositionID: ev.Result.PositionID,
		})
	}, EventMoveQueued)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MoveFailedEvent)
		e.db.AppendAudit("robot", ev.Move.RobotID, "move_failed", "", ev.Detail, "system")
		e.publish(messaging.TypeMoveFailed, messaging.MoveFailed{
			MoveID:     ev.Move.ID,
			Kind:       ev.Move.Kind,
			RobotID:    ev.Move.RobotID,
			ResourceID: ev.Move.ResourceID,
			Target:     ev.Move.Target,
			Detail:     ev.Detail,
		})
	}, EventMoveFailed)

	// Vendor mission progress reported by the trackers
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MissionStateChangedEvent)
		e.logFn("engine: %s mission %d for %s: %s -> %s", ev.Vendor, ev.QueueID, ev.RobotName, ev.OldState, ev.NewState)
		e.db.AppendAudit("mission", strconv.Itoa(ev.QueueID), "state_changed", ev.OldState, ev.NewState, ev.Vendor)
		e.publish(messaging.TypeMissionStateChanged, messaging.MissionStateChanged{
			Vendor:    ev.Vendor,
			QueueID:   ev.QueueID,
			MissionID: ev.MissionID,
			RobotName: ev.RobotName,
			OldState:  ev.OldState,
			NewState:  ev.NewState,
			Detail:    ev.Detail,
		})
	}, EventMissionStateChanged)
}

// publish queues a pool event on the events topic via the outbox.
func (e *Engine) publish(msgType string, payload any) {
	e.cfg.RLock()
	stationID, topic := e.cfg.Messaging.StationID, e.cfg.Messaging.EventsTopic
	e.cfg.RUnlock()

	data, err := messaging.NewEnvelope(msgType, stationID, payload).Encode()
	if err != nil {
		e.logFn("engine: encode %s: %v", msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(topic, data, msgType, stationID); err != nil {
		e.logFn("engine: enqueue %s: %v", msgType, err)
	}
}
