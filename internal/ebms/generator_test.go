package ebms

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
)

func newTestGenerator(t *testing.T, lane config.DomainConfig) *Generator {
	t.Helper()
	registry, err := config.NewDomainRegistry(&config.Config{
		DefaultDomain: "default",
		Domains:       map[string]config.DomainConfig{"default": lane},
	})
	require.NoError(t, err)
	return NewGenerator(registry, logger.NopLogger())
}

func TestGenerateAssignsSuffixedID(t *testing.T) {
	generator := newTestGenerator(t, config.DomainConfig{
		EbmsIDGeneratorEnabled: true,
		EbmsIDSuffix:           "connector.example.eu",
	})

	msg := &domain.Message{ID: "msg-1", Details: &domain.MessageDetails{}}
	require.NoError(t, generator.Generate(context.Background(), msg))

	require.NotEmpty(t, msg.Details.EbmsMessageID)
	assert.True(t, strings.HasSuffix(msg.Details.EbmsMessageID, "@connector.example.eu"))
	assert.Len(t, strings.Split(msg.Details.EbmsMessageID, "@"), 2)
}

func TestGenerateIsIdempotent(t *testing.T) {
	generator := newTestGenerator(t, config.DomainConfig{
		EbmsIDGeneratorEnabled: true,
		EbmsIDSuffix:           "connector.example.eu",
	})

	msg := &domain.Message{
		ID:      "msg-1",
		Details: &domain.MessageDetails{EbmsMessageID: "existing@other.eu"},
	}
	require.NoError(t, generator.Generate(context.Background(), msg))
	assert.Equal(t, "existing@other.eu", msg.Details.EbmsMessageID)
}

func TestGenerateDisabledLane(t *testing.T) {
	generator := newTestGenerator(t, config.DomainConfig{})

	msg := &domain.Message{ID: "msg-1", Details: &domain.MessageDetails{}}
	require.NoError(t, generator.Generate(context.Background(), msg))
	assert.Empty(t, msg.Details.EbmsMessageID)
}

func TestGenerateNilDetails(t *testing.T) {
	generator := newTestGenerator(t, config.DomainConfig{EbmsIDGeneratorEnabled: true})

	err := generator.Generate(context.Background(), &domain.Message{ID: "msg-1"})
	require.Error(t, err)
}

func TestGenerateDistinctIDs(t *testing.T) {
	generator := newTestGenerator(t, config.DomainConfig{
		EbmsIDGeneratorEnabled: true,
		EbmsIDSuffix:           "connector.example.eu",
	})

	first := &domain.Message{ID: "msg-1", Details: &domain.MessageDetails{}}
	second := &domain.Message{ID: "msg-2", Details: &domain.MessageDetails{}}
	require.NoError(t, generator.Generate(context.Background(), first))
	require.NoError(t, generator.Generate(context.Background(), second))

	assert.NotEqual(t, first.Details.EbmsMessageID, second.Details.EbmsMessageID)
}
