package mir

// Record is a named vendor resource that can be resolved by name.
type Record interface {
	RecordName() string
	RecordGUID() string
}

// Position is an item of GET /positions, and the full body returned by
// POST /positions.
type Position struct {
	GUID        string  `json:"guid,omitempty"`
	Name        string  `json:"name,omitempty"`
	Map         string  `json:"map,omitempty"`
	MapID       string  `json:"map_id,omitempty"`
	PosX        float64 `json:"pos_x,omitempty"`
	PosY        float64 `json:"pos_y,omitempty"`
	Orientation float64 `json:"orientation,omitempty"`
	TypeID      int     `json:"type_id,omitempty"`
	URL         string  `json:"url,omitempty"`
}

func (p Position) RecordName() string { return p.Name }
func (p Position) RecordGUID() string { return p.GUID }

// Map is an item of GET /maps.
type Map struct {
	GUID      string `json:"guid,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (m Map) RecordName() string { return m.Name }
func (m Map) RecordGUID() string { return m.GUID }

// Mission is an item of GET /missions, and the body returned by POST /missions.
type Mission struct {
	GUID        string `json:"guid,omitempty"`
	Name        string `json:"name,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

func (m Mission) RecordName() string { return m.Name }
func (m Mission) RecordGUID() string { return m.GUID }

// Session is an item of GET /sessions.
type Session struct {
	GUID string `json:"guid,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (s Session) RecordName() string { return s.Name }
func (s Session) RecordGUID() string { return s.GUID }

// NewPosition is the body of POST /positions.
type NewPosition struct {
	Name        string  `json:"name"`
	PosX        float64 `json:"pos_x"`
	PosY        float64 `json:"pos_y"`
	Orientation float64 `json:"orientation"`
	TypeID      int     `json:"type_id"`
	MapID       string  `json:"map_id"`
}

// NewMission is the body of POST /missions.
type NewMission struct {
	Name    string `json:"name"`
	GroupID string `json:"group_id"`
	Hidden  bool   `json:"hidden"`
}

// MoveAction describes a move action appended to a mission.
type MoveAction struct {
	ActionType        string
	PositionInputName string
	PositionGUID      string
	Retries           int
	DistanceThreshold float64
}

// ActionParameter is one entry of an action's parameter list.
type ActionParameter struct {
	ID        string  `json:"id"`
	InputName *string `json:"input_name"`
	Value     any     `json:"value"`
}

// ActionRequest is the body of POST /missions/{guid}/actions.
type ActionRequest struct {
	ActionType string            `json:"action_type"`
	Parameters []ActionParameter `json:"parameters"`
	Priority   int               `json:"priority"`
}

// Action is the vendor's view of a created mission action.
type Action struct {
	GUID       string            `json:"guid,omitempty"`
	MissionID  string            `json:"mission_id,omitempty"`
	ActionType string            `json:"action_type,omitempty"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
	Priority   int               `json:"priority,omitempty"`
}

// QueueParameter binds a mission input to a value.
type QueueParameter struct {
	InputName string `json:"input_name"`
	Value     string `json:"value"`
}

// QueueRequest is the body of POST /mission_queue.
type QueueRequest struct {
	MissionID  string           `json:"mission_id"`
	Parameters []QueueParameter `json:"parameters"`
}

// QueueState is the execution state of a mission queue entry.
type QueueState string

const (
	QueuePending   QueueState = "Pending"
	QueueExecuting QueueState = "Executing"
	QueuePaused    QueueState = "Paused"
	QueueDone      QueueState = "Done"
	QueueAborted   QueueState = "Aborted"
)

// IsTerminal reports whether the entry will not change state again.
func (s QueueState) IsTerminal() bool {
	return s == QueueDone || s == QueueAborted
}

// QueueEntry is the body returned by POST /mission_queue and GET /mission_queue/{id}.
type QueueEntry struct {
	ID        int        `json:"id"`
	MissionID string     `json:"mission_id,omitempty"`
	State     QueueState `json:"state,omitempty"`
	Message   string     `json:"message,omitempty"`
	Started   string     `json:"started,omitempty"`
	Finished  string     `json:"finished,omitempty"`
	URL       string     `json:"url,omitempty"`
}
