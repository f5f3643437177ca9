package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/domain"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateMatchClause(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid equality",
			expr:      `service == "EPO"`,
			wantError: false,
		},
		{
			name:      "valid conjunction",
			expr:      `service == "EPO" && from_party_id == "DE"`,
			wantError: false,
		},
		{
			name:      "valid startsWith",
			expr:      `action.startsWith("Form_")`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `action`,
			wantError: true,
		},
		{
			name:      "invalid syntax",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateMatchClause(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	details := &domain.MessageDetails{
		Direction: domain.BackendToGateway,
		Action:    "Form_A",
		Service:   domain.Service{Name: "EPO", Type: "urn:e-codex:services"},
		FromParty: domain.Party{ID: "DE", Role: "GW"},
		ToParty:   domain.Party{ID: "AT", Role: "GW"},
	}

	tests := []struct {
		name  string
		expr  string
		match bool
	}{
		{"service match", `service == "EPO"`, true},
		{"service mismatch", `service == "SmallClaims"`, false},
		{"party and service", `service == "EPO" && from_party_id == "DE"`, true},
		{"direction source", `direction_source == "BACKEND"`, true},
		{"action prefix", `action.startsWith("Form_")`, true},
		{"disjunction", `to_party_id == "PL" || to_party_id == "AT"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := eval.CompileMatchClause(tt.expr)
			require.NoError(t, err)

			got, err := eval.Matches(context.Background(), program, details)
			require.NoError(t, err)
			assert.Equal(t, tt.match, got)
		})
	}
}

func TestMatchesNilDetails(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileMatchClause(`service == ""`)
	require.NoError(t, err)

	got, err := eval.Matches(context.Background(), program, nil)
	require.NoError(t, err)
	assert.True(t, got)
}
