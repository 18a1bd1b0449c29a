package messaging

import (
	"log"
)

// InboundHandler is called for each decoded inbound command.
type InboundHandler interface {
	HandleAllocate(env *Envelope, cmd AllocateCommand)
	HandleRelease(env *Envelope, cmd ReleaseCommand)
	HandleMoveToBin(env *Envelope, cmd MoveToBinCommand)
	HandleMoveToPosition(env *Envelope, cmd MoveToPositionCommand)
}

// Consumer subscribes to the commands topic and routes messages to the handler.
type Consumer struct {
	client  *Client
	topic   string
	handler InboundHandler
}

func NewConsumer(client *Client, topic string, handler InboundHandler) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		handler: handler,
	}
}

func (c *Consumer) Start() error {
	return c.client.Subscribe(c.topic, c.handleMessage)
}

func (c *Consumer) handleMessage(_ string, payload []byte) {
	route(c.handler, payload)
}

func route(handler InboundHandler, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		log.Printf("consumer: decode error: %v", err)
		return
	}

	switch p := env.Payload.(type) {
	case AllocateCommand:
		handler.HandleAllocate(env, p)
	case ReleaseCommand:
		handler.HandleRelease(env, p)
	case MoveToBinCommand:
		handler.HandleMoveToBin(env, p)
	case MoveToPositionCommand:
		handler.HandleMoveToPosition(env, p)
	default:
		log.Printf("consumer: unhandled payload type: %T", p)
	}
}
