package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestConn(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return conn
}

func TestEnsureMappingTable_IdempotentAndWritable(t *testing.T) {
	repo := Provide()
	conn := newTestConn(t)
	ctx := context.Background()

	// Every provisioning run ensures the relation before touching it, so a
	// repeat call against an existing table must be a no-op.
	require.NoError(t, repo.EnsureMappingTable(ctx, conn))
	require.NoError(t, repo.EnsureMappingTable(ctx, conn))

	now := time.Now().UTC()
	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "A90",
		SchemaName:  "public",
		Table:       "a90_cases",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	mapping, err := repo.FindActiveMapping(ctx, conn, "A90")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "a90_cases", mapping.Table)
	assert.Equal(t, "public", mapping.SchemaName)
}

func TestFindActiveMapping_NoTableIsNil(t *testing.T) {
	repo := Provide()
	conn := newTestConn(t)

	mapping, err := repo.FindActiveMapping(context.Background(), conn, "A90")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}
