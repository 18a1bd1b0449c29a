package engine

import (
	"robopool/dispatch"
	"robopool/fleet"
	"robopool/store"
)

// dispatchEmitter bridges the dispatch package's emitter interface to the EventBus.
type dispatchEmitter struct {
	bus *EventBus
}

func (e *dispatchEmitter) EmitRobotAllocated(robot *store.Robot) {
	e.bus.Emit(Event{Type: EventRobotAllocated, Payload: RobotAllocatedEvent{
		RobotID:    robot.ID,
		RobotName:  robot.Name,
		Vendor:     robot.Vendor,
		ResourceID: robot.ResourceID,
		LeaseID:    robot.LeaseID,
	}})
}

func (e *dispatchEmitter) EmitAllocationFailed(robotType, reason string) {
	e.bus.Emit(Event{Type: EventAllocationFailed, Payload: AllocationFailedEvent{
		RobotType: robotType,
		Reason:    reason,
	}})
}

func (e *dispatchEmitter) EmitRobotReleased(robot *store.Robot) {
	e.bus.Emit(Event{Type: EventRobotReleased, Payload: RobotReleasedEvent{
		RobotID:    robot.ID,
		Vendor:     robot.Vendor,
		ResourceID: robot.ResourceID,
		LeaseID:    robot.LeaseID,
	}})
}

func (e *dispatchEmitter) EmitMoveRequested(move *dispatch.Move) {
	e.bus.Emit(Event{Type: EventMoveRequested, Payload: MoveRequestedEvent{Move: *move}})
}

func (e *dispatchEmitter) EmitMoveQueued(move *dispatch.Move, result fleet.MoveResult) {
	e.bus.Emit(Event{Type: EventMoveQueued, Payload: MoveQueuedEvent{Move: *move, Result: result}})
}

func (e *dispatchEmitter) EmitMoveFailed(move *dispatch.Move, detail string) {
	e.bus.Emit(Event{Type: EventMoveFailed, Payload: MoveFailedEvent{Move: *move, Detail: detail}})
}

// trackerEmitter bridges fleet tracker state changes to the EventBus.
type trackerEmitter struct {
	bus *EventBus
}

func (e *trackerEmitter) EmitMissionStateChanged(vendor string, queueID int, missionID, robotName, oldState, newState, detail string) {
	e.bus.Emit(Event{Type: EventMissionStateChanged, Payload: MissionStateChangedEvent{
		Vendor:    vendor,
		QueueID:   queueID,
		MissionID: missionID,
		RobotName: robotName,
		OldState:  oldState,
		NewState:  newState,
		Detail:    detail,
	}})
}
