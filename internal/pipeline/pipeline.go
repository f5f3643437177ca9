// Package pipeline runs an ordered list of idempotent steps over one
// message, short-circuiting on the first step that signals non-continuation
// or fails.
package pipeline

import (
	"context"
	"fmt"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/metrics"
)

// Step processes one message. Returning false stops the remaining steps for
// this message without error; an error aborts the run and surfaces to the
// caller.
type Step interface {
	Name() string
	Execute(ctx context.Context, msg *domain.Message) (bool, error)
}

type stepFunc struct {
	name string
	fn   func(ctx context.Context, msg *domain.Message) (bool, error)
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Execute(ctx context.Context, msg *domain.Message) (bool, error) {
	return s.fn(ctx, msg)
}

// StepFunc adapts a function to a named Step.
func StepFunc(name string, fn func(ctx context.Context, msg *domain.Message) (bool, error)) Step {
	return stepFunc{name: name, fn: fn}
}

// Pipeline is an ordered, named list of steps. A pipeline is built once at
// wiring time and is safe for concurrent runs over distinct messages.
type Pipeline struct {
	name   string
	steps  []Step
	logger logger.Logger
}

func New(name string, log logger.Logger, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: steps, logger: log}
}

func (p *Pipeline) Name() string { return p.name }

// Run executes the steps in order against the message. Steps are invoked at
// most once per run; the caller decides whether a failed message is retried
// or dead-lettered.
func (p *Pipeline) Run(ctx context.Context, msg *domain.Message) error {
	for _, step := range p.steps {
		cont, err := step.Execute(ctx, msg)
		if err != nil {
			metrics.IncPipelineStep(step.Name(), "error")
			p.logger.ErrorwCtx(ctx, "Pipeline step failed",
				"pipeline", p.name,
				"step", step.Name(),
				"connector_message_id", string(msg.ID),
				"error", err,
			)
			return fmt.Errorf("pipeline %s step %s: %w", p.name, step.Name(), err)
		}

		if !cont {
			metrics.IncPipelineStep(step.Name(), "stopped")
			p.logger.DebugwCtx(ctx, "Pipeline stopped",
				"pipeline", p.name,
				"step", step.Name(),
				"connector_message_id", string(msg.ID),
			)
			return nil
		}

		metrics.IncPipelineStep(step.Name(), "success")
	}
	return nil
}
