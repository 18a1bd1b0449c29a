package mirfleet

import "robopool/fleet"

// VendorTag is the inventory vendor value for MiR robots.
const VendorTag = "Mir"

// emitterBridge adapts fleet.TrackerEmitter to mir.PollerEmitter.
type emitterBridge struct {
	emitter fleet.TrackerEmitter
}

func (b *emitterBridge) EmitMissionStateChanged(queueID int, missionGUID, robotName, oldState, newState, message string) {
	b.emitter.EmitMissionStateChanged(VendorTag, queueID, missionGUID, robotName, oldState, newState, message)
}
