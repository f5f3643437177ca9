package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/audit"
	"bifrost/internal/config"
	"bifrost/internal/confirmation"
	"bifrost/internal/domain"
	"bifrost/internal/store"
)

func newFlowEngine(t *testing.T, infra *TestInfra) (*confirmation.Engine, store.MessageStore, store.EvidenceStore) {
	t.Helper()

	registry, err := config.NewDomainRegistry(&config.Config{
		DefaultDomain: "default",
		Domains:       map[string]config.DomainConfig{"default": {}},
	})
	require.NoError(t, err)

	messages := store.NewMessageStore(infra.PostgresDB)
	evidences := store.NewEvidenceStore(infra.PostgresDB)
	lock := store.NewMessageLock(infra.RedisClient, 30*time.Second)

	engine := confirmation.NewEngine(messages, evidences, lock, registry, audit.NopTrail(), createTestLogger())
	return engine, messages, evidences
}

// The full lifecycle of one message: acceptance, delivery, then a late
// non-retrieval that overturns the confirmation.
func TestConfirmationLifecycleAgainstStores(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)
	engine, messages, evidences := newFlowEngine(t, infra)
	ctx := context.Background()

	msg := newBusinessMessage("msg-flow-1")
	require.NoError(t, messages.Create(ctx, msg))

	msg.TransportedConfirmations = []*domain.MessageConfirmation{
		confirmationOf(domain.EvidenceSubmissionAcceptance),
		confirmationOf(domain.EvidenceDelivery),
	}
	results, err := engine.ProcessTransportedConfirmations(ctx, msg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, confirmation.OutcomeRecorded, results[0].Outcome)
	assert.Equal(t, confirmation.TransitionConfirmed, results[1].Transition)
	assert.True(t, msg.IsConfirmed())
	assert.Empty(t, msg.TransportedConfirmations)

	// A later negative evidence of a higher lifecycle stage rejects the
	// already confirmed message.
	msg.TransportedConfirmations = []*domain.MessageConfirmation{
		confirmationOf(domain.EvidenceNonRetrieval),
	}
	results, err = engine.ProcessTransportedConfirmations(ctx, msg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, confirmation.TransitionRejected, results[0].Transition)

	stored, err := messages.FindByConnectorID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsConfirmed())
	assert.True(t, stored.IsRejected())

	persisted, err := evidences.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
}

// Evidences for one message normally arrive in separate deliveries, each
// working on a freshly loaded row. The priority rules must hold across that
// reload.
func TestConfirmationSupersededAcrossDeliveries(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)
	engine, messages, _ := newFlowEngine(t, infra)
	ctx := context.Background()

	msg := newBusinessMessage("msg-flow-reload-1")
	require.NoError(t, messages.Create(ctx, msg))

	msg.TransportedConfirmations = []*domain.MessageConfirmation{confirmationOf(domain.EvidenceDelivery)}
	_, err := engine.ProcessTransportedConfirmations(ctx, msg)
	require.NoError(t, err)

	reloaded, err := messages.FindByConnectorID(ctx, msg.ID)
	require.NoError(t, err)
	require.Empty(t, reloaded.RelatedConfirmations)

	reloaded.TransportedConfirmations = []*domain.MessageConfirmation{confirmationOf(domain.EvidenceRelayREMMDFailure)}
	results, err := engine.ProcessTransportedConfirmations(ctx, reloaded)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, confirmation.OutcomeIgnoredSuperseded, results[0].Outcome)

	stored, err := messages.FindByConnectorID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsConfirmed())
	assert.False(t, stored.IsRejected())
}

func TestConfirmationDuplicateDeliveryIgnoredAgainstStores(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)
	engine, messages, evidences := newFlowEngine(t, infra)
	ctx := context.Background()

	msg := newBusinessMessage("msg-flow-dup-1")
	require.NoError(t, messages.Create(ctx, msg))

	msg.TransportedConfirmations = []*domain.MessageConfirmation{confirmationOf(domain.EvidenceDelivery)}
	_, err := engine.ProcessTransportedConfirmations(ctx, msg)
	require.NoError(t, err)

	msg.TransportedConfirmations = []*domain.MessageConfirmation{confirmationOf(domain.EvidenceDelivery)}
	results, err := engine.ProcessTransportedConfirmations(ctx, msg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, confirmation.OutcomeIgnoredDuplicate, results[0].Outcome)

	persisted, err := evidences.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}
