package fleet

// MissionTracker tracks queued vendor missions and emits state change events.
type MissionTracker interface {
	Track(queueID int, missionID, robotName string)
	Untrack(queueID int)
	ActiveCount() int
	Active() map[int]string
	Start()
	Stop()
}

// TrackerEmitter receives state transition events from a tracker.
type TrackerEmitter interface {
	EmitMissionStateChanged(vendor string, queueID int, missionID, robotName, oldState, newState, detail string)
}

// TrackingBackend is a Backend that also provides mission tracking.
type TrackingBackend interface {
	Backend
	InitTracker(emitter TrackerEmitter)
	Tracker() MissionTracker
}
