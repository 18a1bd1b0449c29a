package messaging

import (
	"errors"
	"log"

	"robopool/dispatch"
	"robopool/fleet"
	"robopool/store"
)

// Dispatcher is the slice of the pool dispatcher driven by inbound commands.
type Dispatcher interface {
	Allocate(robotType string) (*store.Robot, error)
	Release(resourceID string) (*store.Robot, error)
	MoveToBin(resourceID, binID string) (*dispatch.Move, error)
	MoveToPosition(resourceID string, pos fleet.Position, mapName string) (*dispatch.Move, error)
}

// Outbox queues an encoded message for the drainer.
type Outbox interface {
	EnqueueOutbox(topic string, payload []byte, msgType, stationID string) error
}

// CommandHandler executes inbound commands against the dispatcher.
// Successful outcomes are reported by the engine's event wiring; commands
// rejected before they reach the pool are answered here.
type CommandHandler struct {
	dispatcher  Dispatcher
	outbox      Outbox
	stationID   string
	eventsTopic string
}

func NewCommandHandler(dispatcher Dispatcher, outbox Outbox, stationID, eventsTopic string) *CommandHandler {
	return &CommandHandler{
		dispatcher:  dispatcher,
		outbox:      outbox,
		stationID:   stationID,
		eventsTopic: eventsTopic,
	}
}

func (h *CommandHandler) HandleAllocate(env *Envelope, cmd AllocateCommand) {
	log.Printf("command_handler: allocate from %s: type=%q", env.StationID, cmd.RobotType)
	// pool exhaustion is published as robot.allocation_failed
	if _, err := h.dispatcher.Allocate(cmd.RobotType); err != nil && !errors.Is(err, store.ErrNoFreeRobot) {
		h.reject(env, err)
	}
}

func (h *CommandHandler) HandleRelease(env *Envelope, cmd ReleaseCommand) {
	log.Printf("command_handler: release from %s: resource=%s", env.StationID, cmd.ResourceID)
	if _, err := h.dispatcher.Release(cmd.ResourceID); err != nil {
		h.reject(env, err)
	}
}

func (h *CommandHandler) HandleMoveToBin(env *Envelope, cmd MoveToBinCommand) {
	log.Printf("command_handler: move to bin from %s: resource=%s bin=%s", env.StationID, cmd.ResourceID, cmd.BinID)
	if cmd.BinID == "" {
		h.reject(env, errors.New("bin_id is required"))
		return
	}
	if _, err := h.dispatcher.MoveToBin(cmd.ResourceID, cmd.BinID); err != nil {
		h.reject(env, err)
	}
}

func (h *CommandHandler) HandleMoveToPosition(env *Envelope, cmd MoveToPositionCommand) {
	log.Printf("command_handler: move to position from %s: resource=%s position=%q", env.StationID, cmd.ResourceID, cmd.Position.Name)
	if _, err := h.dispatcher.MoveToPosition(cmd.ResourceID, cmd.Position, cmd.MapName); err != nil {
		h.reject(env, err)
	}
}

func (h *CommandHandler) reject(env *Envelope, cause error) {
	topic := env.ReplyTo
	if topic == "" {
		topic = h.eventsTopic
	}
	reply := NewEnvelope(TypeCommandRejected, h.stationID, CommandRejected{
		CommandID:   env.MsgID,
		CommandType: env.MsgType,
		Reason:      cause.Error(),
	})
	data, err := reply.Encode()
	if err != nil {
		log.Printf("command_handler: encode rejection: %v", err)
		return
	}
	if err := h.outbox.EnqueueOutbox(topic, data, TypeCommandRejected, h.stationID); err != nil {
		log.Printf("command_handler: enqueue rejection: %v", err)
	}
}
