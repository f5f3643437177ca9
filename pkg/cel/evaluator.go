// Package cel evaluates routing rule match clauses. A match clause is a CEL
// predicate over the normalized message details, e.g.
//
//	service == "EPO" && from_party_id == "DE"
package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"bifrost/internal/domain"
)

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("direction_source", cel.StringType),
		cel.Variable("direction_target", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("service", cel.StringType),
		cel.Variable("service_type", cel.StringType),
		cel.Variable("from_party_id", cel.StringType),
		cel.Variable("from_party_role", cel.StringType),
		cel.Variable("to_party_id", cel.StringType),
		cel.Variable("to_party_role", cel.StringType),
		cel.Variable("original_sender", cel.StringType),
		cel.Variable("final_recipient", cel.StringType),
		cel.Variable("conversation_id", cel.StringType),
		cel.Variable("ebms_message_id", cel.StringType),
		cel.Variable("backend_message_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// ValidateMatchClause compiles the expression and checks it yields a bool.
func (e *Evaluator) ValidateMatchClause(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("match clause must return bool, got %v", ast.OutputType())
	}

	return nil
}

// CompileMatchClause compiles the expression to a reusable program. Rules
// are compiled once when a snapshot is loaded, not per message.
func (e *Evaluator) CompileMatchClause(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("match clause must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// Matches evaluates a compiled match clause against the message details.
func (e *Evaluator) Matches(ctx context.Context, program cel.Program, details *domain.MessageDetails) (bool, error) {
	result, _, err := program.ContextEval(ctx, detailsToVars(details))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func detailsToVars(details *domain.MessageDetails) map[string]interface{} {
	if details == nil {
		details = &domain.MessageDetails{}
	}
	return map[string]interface{}{
		"direction_source":   string(details.Direction.Source),
		"direction_target":   string(details.Direction.Target),
		"action":             details.Action,
		"service":            details.Service.Name,
		"service_type":       details.Service.Type,
		"from_party_id":      details.FromParty.ID,
		"from_party_role":    details.FromParty.Role,
		"to_party_id":        details.ToParty.ID,
		"to_party_role":      details.ToParty.Role,
		"original_sender":    details.OriginalSender,
		"final_recipient":    details.FinalRecipient,
		"conversation_id":    details.ConversationID,
		"ebms_message_id":    details.EbmsMessageID,
		"backend_message_id": details.BackendMessageID,
	}
}
