package dispatch

import (
	"robopool/fleet"
	"robopool/store"
)

// Emitter is the interface adapters must satisfy to bridge dispatch events to the engine.
type Emitter interface {
	EmitRobotAllocated(robot *store.Robot)
	EmitAllocationFailed(robotType, reason string)
	EmitRobotReleased(robot *store.Robot)
	EmitMoveRequested(move *Move)
	EmitMoveQueued(move *Move, result fleet.MoveResult)
	EmitMoveFailed(move *Move, detail string)
}
