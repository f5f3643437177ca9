package queue

import (
	"context"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

// LinkQueue is the outbound hand-off to the transport link layer. A message
// is routed to the gateway or backend link topic by its transport target.
type LinkQueue struct {
	producer Producer
	cfg      config.QueueConfig
	logger   logger.Logger
}

func NewLinkQueue(producer Producer, cfg config.QueueConfig, log logger.Logger) *LinkQueue {
	return &LinkQueue{
		producer: producer,
		cfg:      cfg,
		logger:   log,
	}
}

func (q *LinkQueue) Enqueue(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message with details is required for dispatch")
	}

	var topic string
	switch msg.Details.Direction.Target {
	case domain.RoleGateway:
		topic = q.cfg.GatewayLinkTopic
	case domain.RoleBackend:
		topic = q.cfg.BackendLinkTopic
	default:
		return errors.ErrValidation.WithDetail("message",
			"message direction target names no link")
	}

	if err := q.producer.Publish(ctx, topic, FromMessage(msg)); err != nil {
		return err
	}

	q.logger.DebugwCtx(ctx, "Dispatched message to link topic",
		"connector_message_id", string(msg.ID),
		"topic", topic,
	)
	return nil
}

func (q *LinkQueue) Close() error {
	return q.producer.Close()
}
