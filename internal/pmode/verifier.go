package pmode

import (
	"context"
	"fmt"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
	"bifrost/pkg/metrics"
)

// Verification modes. An empty mode behaves as RELAXED.
const (
	ModeRelaxed = "RELAXED"
	ModeStrict  = "STRICT"
	ModeCreate  = "CREATE"
)

// Verifier normalizes a message's action, service and parties against the
// lane's processing-mode catalog.
type Verifier struct {
	catalog  Catalog
	registry *config.DomainRegistry
	logger   logger.Logger
}

func NewVerifier(catalog Catalog, registry *config.DomainRegistry, log logger.Logger) *Verifier {
	return &Verifier{
		catalog:  catalog,
		registry: registry,
		logger:   log,
	}
}

func (v *Verifier) VerifyOutgoing(ctx context.Context, msg *domain.Message) error {
	return v.verify(ctx, msg, "outgoing", func(lane config.DomainConfig) string {
		return lane.OutgoingPModeVerificationMode
	})
}

func (v *Verifier) VerifyIncoming(ctx context.Context, msg *domain.Message) error {
	return v.verify(ctx, msg, "incoming", func(lane config.DomainConfig) string {
		return lane.IncomingPModeVerificationMode
	})
}

func (v *Verifier) verify(ctx context.Context, msg *domain.Message, direction string, modeOf func(config.DomainConfig) string) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message details are required for pmode verification")
	}

	domainID, lane, err := v.registry.Resolve(msg.BusinessDomainID)
	if err != nil {
		return errors.ErrValidation.WithCause(err)
	}
	msg.BusinessDomainID = domainID

	defaultRoleTypes(msg.Details)

	mode := modeOf(lane)
	if mode == "" {
		mode = ModeRelaxed
	}

	switch mode {
	case ModeRelaxed:
		err = v.verifyRelaxed(ctx, domainID, msg.Details, lane.EnforceServiceActionNames)
	case ModeStrict:
		// Experimental: the persistence step is responsible for completing
		// and validating the entries.
		v.logger.DebugwCtx(ctx, "STRICT pmode verification accepts message as-is",
			"direction", direction,
		)
	case ModeCreate:
		v.logger.WarnwCtx(ctx, "CREATE pmode verification mode is not supported, skipping normalization",
			"direction", direction,
		)
	default:
		err = errors.ErrValidation.WithDetail("message",
			fmt.Sprintf("unknown pmode verification mode %q", mode))
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.IncPModeVerification(direction, mode, status)
	return err
}

// verifyRelaxed normalizes the details against the catalog. Parties are
// always enforced; an action or service name missing from the catalog is a
// hard failure only when the lane enforces names, otherwise the name is
// kept as-is for downstream completion.
func (v *Verifier) verifyRelaxed(ctx context.Context, domainID domain.BusinessDomainID, details *domain.MessageDetails, enforceNames bool) error {
	action, err := v.catalog.FindAction(ctx, domainID, details.Action)
	switch {
	case err == nil:
		details.Action = action
	case errors.IsNotFound(err) && !enforceNames:
		v.logger.DebugwCtx(ctx, "Action not in catalog, name enforcement is off",
			"action", details.Action,
		)
	default:
		return asValidation(err)
	}

	service, err := v.catalog.FindService(ctx, domainID, details.Service.Name)
	switch {
	case err == nil:
		details.Service = *service
	case errors.IsNotFound(err) && !enforceNames:
		v.logger.DebugwCtx(ctx, "Service not in catalog, name enforcement is off",
			"service", details.Service.Name,
		)
	default:
		return asValidation(err)
	}

	if err := v.normalizeParty(ctx, domainID, &details.FromParty); err != nil {
		return err
	}
	return v.normalizeParty(ctx, domainID, &details.ToParty)
}

// normalizeParty replaces the party with its canonical catalog entry. A blank
// id type is treated as unset for the lookup.
func (v *Verifier) normalizeParty(ctx context.Context, domainID domain.BusinessDomainID, party *domain.Party) error {
	canonical, err := v.catalog.FindParty(ctx, domainID, party.ID, party.IDType)
	if err != nil {
		return asValidation(err)
	}

	roleType := party.RoleType
	*party = *canonical
	if party.RoleType == "" {
		party.RoleType = roleType
	}
	return nil
}

// defaultRoleTypes fills unset party role types from the party's position in
// the exchange.
func defaultRoleTypes(details *domain.MessageDetails) {
	if details.FromParty.RoleType == "" {
		details.FromParty.RoleType = domain.PartyRoleInitiator
	}
	if details.ToParty.RoleType == "" {
		details.ToParty.RoleType = domain.PartyRoleResponder
	}
}

// asValidation turns catalog not-found errors into hard validation failures;
// everything else passes through unchanged.
func asValidation(err error) error {
	if errors.IsNotFound(err) {
		if typed, ok := err.(*errors.Error); ok {
			return errors.ErrValidation.WithCause(typed).WithDetail("message", typed.Details["message"])
		}
		return errors.ErrValidation.WithCause(err)
	}
	return err
}
