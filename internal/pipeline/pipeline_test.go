package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/config"
	"bifrost/internal/confirmation"
	"bifrost/internal/domain"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

func TestPipelineRunsStepsInOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return StepFunc(name, func(_ context.Context, _ *domain.Message) (bool, error) {
			order = append(order, name)
			return true, nil
		})
	}

	p := New("test", logger.NopLogger(), step("first"), step("second"), step("third"))
	require.NoError(t, p.Run(context.Background(), &domain.Message{ID: "msg-1"}))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPipelineShortCircuits(t *testing.T) {
	var reached bool
	p := New("test", logger.NopLogger(),
		StepFunc("stop", func(_ context.Context, _ *domain.Message) (bool, error) {
			return false, nil
		}),
		StepFunc("unreached", func(_ context.Context, _ *domain.Message) (bool, error) {
			reached = true
			return true, nil
		}),
	)

	require.NoError(t, p.Run(context.Background(), &domain.Message{ID: "msg-1"}))
	assert.False(t, reached)
}

func TestPipelineAbortsOnError(t *testing.T) {
	var reached bool
	p := New("test", logger.NopLogger(),
		StepFunc("failing", func(_ context.Context, _ *domain.Message) (bool, error) {
			return true, errors.ErrValidation.WithDetail("message", "bad message")
		}),
		StepFunc("unreached", func(_ context.Context, _ *domain.Message) (bool, error) {
			reached = true
			return true, nil
		}),
	)

	err := p.Run(context.Background(), &domain.Message{ID: "msg-1"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, reached)
}

type recordingQueue struct {
	enqueued []*domain.Message
}

func (q *recordingQueue) Enqueue(_ context.Context, msg *domain.Message) error {
	q.enqueued = append(q.enqueued, msg)
	return nil
}

func newDispatchFixture(t *testing.T, echo bool) (*recordingQueue, Step) {
	t.Helper()
	registry, err := config.NewDomainRegistry(&config.Config{
		DefaultDomain: "default",
		Domains: map[string]config.DomainConfig{
			"default": {SendGeneratedEvidencesToBackend: echo},
		},
	})
	require.NoError(t, err)

	queue := &recordingQueue{}
	submitter := confirmation.NewSubmitter(queue, evidence.NewFactory(), registry, logger.NopLogger())
	return queue, TriggerDispatchStep(queue, submitter)
}

func processedTrigger() *domain.Message {
	return &domain.Message{
		ID:               "trigger-1",
		BusinessDomainID: "default",
		Details: &domain.MessageDetails{
			Direction:      domain.BackendToGateway,
			FromParty:      domain.Party{ID: "AT"},
			ToParty:        domain.Party{ID: "DE"},
			OriginalSender: "recipient@example.at",
			FinalRecipient: "sender@example.de",
		},
		TransportedConfirmations: []*domain.MessageConfirmation{
			{EvidenceType: domain.EvidenceDelivery, Evidence: []byte("<rem/>")},
		},
	}
}

func TestTriggerDispatchStep(t *testing.T) {
	queue, step := newDispatchFixture(t, false)

	cont, err := step.Execute(context.Background(), processedTrigger())
	require.NoError(t, err)
	assert.False(t, cont, "a dispatched trigger ends its pipeline run")
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, domain.MessageID("trigger-1"), queue.enqueued[0].ID)
}

func TestTriggerDispatchStepEchoesToBackend(t *testing.T) {
	queue, step := newDispatchFixture(t, true)

	cont, err := step.Execute(context.Background(), processedTrigger())
	require.NoError(t, err)
	assert.False(t, cont)
	require.Len(t, queue.enqueued, 2)

	echo := queue.enqueued[1]
	assert.NotEqual(t, queue.enqueued[0].ID, echo.ID)
	assert.Equal(t, domain.GatewayToBackend, echo.Details.Direction)
	assert.Equal(t, "DE", echo.Details.FromParty.ID)
	assert.Equal(t, "AT", echo.Details.ToParty.ID)
}

func TestTriggerDispatchStepSkipsBusinessMessage(t *testing.T) {
	queue, step := newDispatchFixture(t, true)

	business := &domain.Message{
		ID:      "msg-1",
		Details: &domain.MessageDetails{Direction: domain.BackendToGateway},
		Content: &domain.Content{XML: []byte("<doc/>")},
	}

	cont, err := step.Execute(context.Background(), business)
	require.NoError(t, err)
	assert.True(t, cont)
	assert.Empty(t, queue.enqueued)
}
