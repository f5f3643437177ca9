package integration

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/pmode"
	"bifrost/pkg/errors"
)

func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()

	statements := []string{
		`INSERT INTO pmode_actions (business_domain_id, action_name) VALUES ('default', 'SubmitOrder')`,
		`INSERT INTO pmode_services (business_domain_id, service_name, service_type) VALUES ('default', 'EPO', 'urn:e-codex:services')`,
		`INSERT INTO pmode_parties (business_domain_id, party_id, party_id_type, role, role_type) VALUES ('default', 'DE', 'urn:iso:3166-1', 'GW', 'INITIATOR')`,
		`INSERT INTO pmode_parties (business_domain_id, party_id, party_id_type, role, role_type) VALUES ('default', 'AT', 'urn:iso:3166-1', 'GW', 'RESPONDER')`,
		`INSERT INTO pmode_parties (business_domain_id, party_id, party_id_type, role, role_type) VALUES ('default', 'AT', 'urn:oasis:tc:ebcore', 'GW', 'RESPONDER')`,
	}
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func TestCatalogLookups(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	seedCatalog(t, infra.PostgresDB)
	catalog := pmode.NewCatalog(infra.PostgresDB)
	ctx := context.Background()

	action, err := catalog.FindAction(ctx, "default", "SubmitOrder")
	require.NoError(t, err)
	assert.Equal(t, "SubmitOrder", action)

	_, err = catalog.FindAction(ctx, "default", "UnknownAction")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	svc, err := catalog.FindService(ctx, "default", "EPO")
	require.NoError(t, err)
	assert.Equal(t, "urn:e-codex:services", svc.Type)

	party, err := catalog.FindParty(ctx, "default", "DE", "")
	require.NoError(t, err)
	assert.Equal(t, "urn:iso:3166-1", party.IDType)
	assert.Equal(t, "GW", party.Role)
}

func TestCatalogAmbiguousPartyFailsWithoutIDType(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)
	seedCatalog(t, infra.PostgresDB)
	catalog := pmode.NewCatalog(infra.PostgresDB)
	ctx := context.Background()

	// AT is configured under two id types; without an id type the lookup
	// cannot pick one.
	_, err := catalog.FindParty(ctx, "default", "AT", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	party, err := catalog.FindParty(ctx, "default", "AT", "urn:oasis:tc:ebcore")
	require.NoError(t, err)
	assert.Equal(t, "urn:oasis:tc:ebcore", party.IDType)
}
