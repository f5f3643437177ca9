// Package ebms assigns transport-level message ids.
package ebms

import (
	"context"

	"github.com/google/uuid"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
	"bifrost/pkg/metrics"
)

// Generator assigns an ebMS message id of the form <uuid>@<suffix> when the
// lane enables generation and the message does not carry one yet.
type Generator struct {
	registry *config.DomainRegistry
	logger   logger.Logger
}

func NewGenerator(registry *config.DomainRegistry, log logger.Logger) *Generator {
	return &Generator{registry: registry, logger: log}
}

// Generate is a no-op when generation is disabled for the lane or the
// message already has an ebMS id.
func (g *Generator) Generate(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message details are required for id generation")
	}

	domainID, lane, err := g.registry.Resolve(msg.BusinessDomainID)
	if err != nil {
		return errors.ErrValidation.WithCause(err)
	}
	msg.BusinessDomainID = domainID

	if !lane.EbmsIDGeneratorEnabled || msg.Details.EbmsMessageID != "" {
		return nil
	}

	msg.Details.EbmsMessageID = uuid.New().String() + "@" + lane.EbmsIDSuffix
	g.logger.DebugwCtx(ctx, "Assigned ebMS message id",
		"ebms_message_id", msg.Details.EbmsMessageID,
	)
	metrics.IncEbmsIDGenerated()
	return nil
}
