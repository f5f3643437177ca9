package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/domain"
	"bifrost/internal/store"
	"bifrost/pkg/errors"
)

func TestMessageStoreCreateAndFind(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	messages := store.NewMessageStore(infra.PostgresDB)
	ctx := context.Background()

	msg := newBusinessMessage("msg-create-1")
	require.NoError(t, messages.Create(ctx, msg))

	found, err := messages.FindByConnectorID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, found.ID)
	assert.Equal(t, msg.BusinessDomainID, found.BusinessDomainID)
	assert.Equal(t, msg.Details.Action, found.Details.Action)
	assert.Equal(t, msg.Details.FromParty, found.Details.FromParty)
	assert.Equal(t, msg.Details.EbmsMessageID, found.Details.EbmsMessageID)
	assert.Equal(t, msg.Content.XML, found.Content.XML)
	assert.False(t, found.IsConfirmed())
	assert.False(t, found.IsRejected())

	byEbms, err := messages.FindByTransportIDAndDirection(ctx, msg.Details.EbmsMessageID, domain.BackendToGateway)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, byEbms.ID)

	byBackend, err := messages.FindByTransportIDAndDirection(ctx, msg.Details.BackendMessageID, domain.BackendToGateway)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, byBackend.ID)

	_, err = messages.FindByTransportIDAndDirection(ctx, msg.Details.EbmsMessageID, domain.GatewayToBackend)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestMessageStoreRedeliveryConflict(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	messages := store.NewMessageStore(infra.PostgresDB)
	ctx := context.Background()

	first := newBusinessMessage("msg-redelivery-1")
	require.NoError(t, messages.Create(ctx, first))

	redelivered := newBusinessMessage("msg-redelivery-2")
	redelivered.Details.EbmsMessageID = first.Details.EbmsMessageID
	redelivered.Details.BackendMessageID = ""

	err := messages.Create(ctx, redelivered)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestMessageStoreConversationOrdering(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	messages := store.NewMessageStore(infra.PostgresDB)
	ctx := context.Background()

	first := newBusinessMessage("msg-conv-1")
	second := newBusinessMessage("msg-conv-2")
	second.Details.ConversationID = first.Details.ConversationID

	require.NoError(t, messages.Create(ctx, first))
	require.NoError(t, messages.Create(ctx, second))

	conversation, err := messages.FindByConversationID(ctx, "default", first.Details.ConversationID)
	require.NoError(t, err)
	require.Len(t, conversation, 2)
	assert.Equal(t, first.ID, conversation[0].ID)
	assert.Equal(t, second.ID, conversation[1].ID)
}

func TestMessageStoreConfirmIsMonotonic(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	messages := store.NewMessageStore(infra.PostgresDB)
	ctx := context.Background()

	msg := newBusinessMessage("msg-confirm-1")
	require.NoError(t, messages.Create(ctx, msg))

	require.NoError(t, messages.Confirm(ctx, msg))
	require.NotNil(t, msg.Details.ConfirmedAt)
	firstConfirmation := *msg.Details.ConfirmedAt

	// A repeated confirmation keeps the original timestamp.
	require.NoError(t, messages.Confirm(ctx, msg))
	assert.Equal(t, firstConfirmation, *msg.Details.ConfirmedAt)
}

func TestMessageStoreRejectIsTerminal(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	messages := store.NewMessageStore(infra.PostgresDB)
	ctx := context.Background()

	msg := newBusinessMessage("msg-reject-1")
	require.NoError(t, messages.Create(ctx, msg))

	require.NoError(t, messages.Confirm(ctx, msg))
	require.NoError(t, messages.Reject(ctx, msg))
	require.NotNil(t, msg.Details.RejectedAt)

	rejected, err := messages.IsRejected(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, rejected)

	// Confirmation after rejection is refused; the stored state keeps both
	// timestamps.
	err = messages.Confirm(ctx, msg)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	found, err := messages.FindByConnectorID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, found.IsConfirmed())
	assert.True(t, found.IsRejected())
}
