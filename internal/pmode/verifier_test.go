package pmode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

type fakeCatalog struct {
	actions  map[string]string
	services map[string]domain.Service
	parties  map[string]domain.Party

	// lastPartyIDType records the id type of the most recent party lookup.
	lastPartyIDType string
}

func (f *fakeCatalog) FindAction(_ context.Context, _ domain.BusinessDomainID, action string) (string, error) {
	if name, ok := f.actions[action]; ok {
		return name, nil
	}
	return "", errors.ErrNotFound.WithDetail("message", "action not configured")
}

func (f *fakeCatalog) FindService(_ context.Context, _ domain.BusinessDomainID, name string) (*domain.Service, error) {
	if svc, ok := f.services[name]; ok {
		return &svc, nil
	}
	return nil, errors.ErrNotFound.WithDetail("message", "service not configured")
}

func (f *fakeCatalog) FindParty(_ context.Context, _ domain.BusinessDomainID, partyID, idType string) (*domain.Party, error) {
	f.lastPartyIDType = idType
	if p, ok := f.parties[partyID]; ok {
		return &p, nil
	}
	return nil, errors.ErrNotFound.WithDetail("message", "party not configured")
}

func fullCatalog() *fakeCatalog {
	return &fakeCatalog{
		actions: map[string]string{"SubmitOrder": "SubmitOrder"},
		services: map[string]domain.Service{
			"EPO": {Name: "EPO", Type: "urn:e-codex:services"},
		},
		parties: map[string]domain.Party{
			"DE": {ID: "DE", IDType: "urn:oasis:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
			"AT": {ID: "AT", IDType: "urn:oasis:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
		},
	}
}

func newTestVerifier(t *testing.T, catalog Catalog, lane config.DomainConfig) *Verifier {
	t.Helper()
	registry, err := config.NewDomainRegistry(&config.Config{
		DefaultDomain: "default",
		Domains:       map[string]config.DomainConfig{"default": lane},
	})
	require.NoError(t, err)
	return NewVerifier(catalog, registry, logger.NopLogger())
}

func verifiableMessage() *domain.Message {
	return &domain.Message{
		ID: "msg-1",
		Details: &domain.MessageDetails{
			Direction: domain.BackendToGateway,
			Action:    "SubmitOrder",
			Service:   domain.Service{Name: "EPO"},
			FromParty: domain.Party{ID: "DE"},
			ToParty:   domain.Party{ID: "AT"},
		},
	}
}

func TestVerifyOutgoingRelaxedNormalizes(t *testing.T) {
	catalog := fullCatalog()
	verifier := newTestVerifier(t, catalog, config.DomainConfig{
		OutgoingPModeVerificationMode: ModeRelaxed,
	})

	msg := verifiableMessage()
	require.NoError(t, verifier.VerifyOutgoing(context.Background(), msg))

	assert.Equal(t, "urn:e-codex:services", msg.Details.Service.Type,
		"service is replaced with the canonical catalog entry")
	assert.Equal(t, "urn:oasis:tc:ebcore:partyid-type:iso3166-1", msg.Details.FromParty.IDType)
	assert.Equal(t, "GW", msg.Details.ToParty.Role)
}

func TestVerifyDefaultsPartyRoleTypes(t *testing.T) {
	verifier := newTestVerifier(t, fullCatalog(), config.DomainConfig{
		OutgoingPModeVerificationMode: ModeRelaxed,
	})

	msg := verifiableMessage()
	require.NoError(t, verifier.VerifyOutgoing(context.Background(), msg))

	assert.Equal(t, domain.PartyRoleInitiator, msg.Details.FromParty.RoleType)
	assert.Equal(t, domain.PartyRoleResponder, msg.Details.ToParty.RoleType)
}

func TestVerifyRelaxedBlankIDTypeTreatedAsUnset(t *testing.T) {
	catalog := fullCatalog()
	verifier := newTestVerifier(t, catalog, config.DomainConfig{
		IncomingPModeVerificationMode: ModeRelaxed,
	})

	msg := verifiableMessage()
	msg.Details.FromParty.IDType = ""
	require.NoError(t, verifier.VerifyIncoming(context.Background(), msg))
	assert.Empty(t, catalog.lastPartyIDType)
}

func TestVerifyRelaxedUnconfiguredEntries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.MessageDetails)
	}{
		{
			name:   "unknown action",
			mutate: func(d *domain.MessageDetails) { d.Action = "Unknown" },
		},
		{
			name:   "unknown service",
			mutate: func(d *domain.MessageDetails) { d.Service.Name = "Unknown" },
		},
		{
			name:   "unknown from party",
			mutate: func(d *domain.MessageDetails) { d.FromParty.ID = "XX" },
		},
		{
			name:   "unknown to party",
			mutate: func(d *domain.MessageDetails) { d.ToParty.ID = "XX" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newTestVerifier(t, fullCatalog(), config.DomainConfig{
				OutgoingPModeVerificationMode: ModeRelaxed,
				EnforceServiceActionNames:     true,
			})

			msg := verifiableMessage()
			tt.mutate(msg.Details)

			err := verifier.VerifyOutgoing(context.Background(), msg)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

// Without name enforcement an unconfigured action or service passes through
// unchanged; the parties are still normalized and enforced.
func TestVerifyRelaxedUnenforcedNamesPassThrough(t *testing.T) {
	verifier := newTestVerifier(t, fullCatalog(), config.DomainConfig{
		OutgoingPModeVerificationMode: ModeRelaxed,
	})

	msg := verifiableMessage()
	msg.Details.Action = "CustomAction"
	msg.Details.Service.Name = "CustomService"

	require.NoError(t, verifier.VerifyOutgoing(context.Background(), msg))
	assert.Equal(t, "CustomAction", msg.Details.Action)
	assert.Equal(t, "CustomService", msg.Details.Service.Name)
	assert.Equal(t, "GW", msg.Details.FromParty.Role)

	msg.Details.FromParty.ID = "XX"
	err := verifier.VerifyOutgoing(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestVerifyStrictAcceptsAsIs(t *testing.T) {
	verifier := newTestVerifier(t, &fakeCatalog{}, config.DomainConfig{
		OutgoingPModeVerificationMode: ModeStrict,
	})

	msg := verifiableMessage()
	msg.Details.Action = "NotInCatalog"
	require.NoError(t, verifier.VerifyOutgoing(context.Background(), msg))
	assert.Equal(t, "NotInCatalog", msg.Details.Action)
}

func TestVerifyCreateSkipsNormalization(t *testing.T) {
	verifier := newTestVerifier(t, &fakeCatalog{}, config.DomainConfig{
		IncomingPModeVerificationMode: ModeCreate,
	})

	msg := verifiableMessage()
	require.NoError(t, verifier.VerifyIncoming(context.Background(), msg))
	assert.Empty(t, msg.Details.Service.Type)
}

func TestVerifyEmptyModeBehavesAsRelaxed(t *testing.T) {
	verifier := newTestVerifier(t, fullCatalog(), config.DomainConfig{})

	msg := verifiableMessage()
	require.NoError(t, verifier.VerifyOutgoing(context.Background(), msg))
	assert.Equal(t, "urn:e-codex:services", msg.Details.Service.Type)
}

func TestVerifyNilDetails(t *testing.T) {
	verifier := newTestVerifier(t, fullCatalog(), config.DomainConfig{})

	err := verifier.VerifyOutgoing(context.Background(), &domain.Message{ID: "msg-1"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
