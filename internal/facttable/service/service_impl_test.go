package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/opendpho/epidash/internal/config"
	diseaserepository "github.com/opendpho/epidash/internal/disease/repository"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	facttablerepository "github.com/opendpho/epidash/internal/facttable/repository"
	"github.com/opendpho/epidash/internal/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	holder, err := config.NewIngestionConfigHolder()
	require.NoError(t, err)

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Repo:    facttablerepository.Provide(),
		Disease: diseaserepository.Provide(),
		Holder:  holder,
	}).(*Service)
	return svc, conn
}

func migrateMappings(t *testing.T, conn *gorm.DB) {
	t.Helper()
	require.NoError(t, conn.AutoMigrate(&facttabledomain.FactTableMapping{}))
}

func TestResolve_DefaultWithoutMapping(t *testing.T) {
	svc, conn := newTestService(t)
	migrateMappings(t, conn)

	ctx := context.Background()

	assert.Equal(t, facttabledomain.TableRef{Schema: "public", Table: "a90_cases"}, svc.Resolve(ctx, "A90"))
	assert.Equal(t, facttabledomain.TableRef{Schema: "public", Table: "a90_cases"}, svc.Resolve(ctx, "a91"))
	// Codes with no mapping and no static route land on the default relation.
	assert.Equal(t, facttabledomain.TableRef{Schema: "public", Table: "a90_cases"}, svc.Resolve(ctx, "B99"))
	// So does garbage input.
	assert.Equal(t, facttabledomain.TableRef{Schema: "public", Table: "a90_cases"}, svc.Resolve(ctx, "a90; DROP TABLE diseases"))
}

func TestResolve_MissingMappingTableFallsBack(t *testing.T) {
	svc, _ := newTestService(t)

	ref := svc.Resolve(context.Background(), "A90")
	assert.Equal(t, "a90_cases", ref.Table)
}

func TestResolve_ActiveMappingWins(t *testing.T) {
	svc, conn := newTestService(t)
	migrateMappings(t, conn)

	ctx := context.Background()
	repo := facttablerepository.Provide()
	now := time.Now().UTC()
	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "B01",
		SchemaName:  "public",
		Table:       "b01_cases",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	assert.Equal(t, facttabledomain.TableRef{Schema: "public", Table: "b01_cases"}, svc.Resolve(ctx, "B01"))

	// Re-provisioning updates the row in place.
	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "B01",
		SchemaName:  "public",
		Table:       "b01_cases_v2",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	assert.Equal(t, "b01_cases_v2", svc.Resolve(ctx, "B01").Table)
}

func TestResolve_IgnoresInactiveAndInvalidMappings(t *testing.T) {
	svc, conn := newTestService(t)
	migrateMappings(t, conn)

	ctx := context.Background()
	repo := facttablerepository.Provide()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "B01",
		SchemaName:  "public",
		Table:       "b01_cases",
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	assert.Equal(t, "a90_cases", svc.Resolve(ctx, "B01").Table)

	// A stored name that fails validation must never reach SQL assembly.
	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "B02",
		SchemaName:  "public",
		Table:       `b02_cases"; DROP TABLE diseases; --`,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	assert.Equal(t, "a90_cases", svc.Resolve(ctx, "B02").Table)
}

func TestProvision_RejectsBadIdentifiers(t *testing.T) {
	svc, conn := newTestService(t)
	require.NoError(t, conn.AutoMigrate(&facttabledomain.FactTableMapping{}))

	ctx := context.Background()

	_, err := svc.Provision(ctx, facttabledomain.ProvisionRequest{TableName: "a90_cases; DROP TABLE diseases"})
	assert.ErrorIs(t, err, identifier.ErrInvalidTableName)

	_, err = svc.Provision(ctx, facttabledomain.ProvisionRequest{TableName: "cases"})
	assert.ErrorIs(t, err, identifier.ErrInvalidTableName)

	_, err = svc.Provision(ctx, facttabledomain.ProvisionRequest{TableName: "b01_cases", DiseaseCode: "A90"})
	assert.ErrorIs(t, err, identifier.ErrPrefixMismatch)

	_, err = svc.Provision(ctx, facttabledomain.ProvisionRequest{TableName: "a90_cases", DiseaseCode: "dengue"})
	assert.ErrorIs(t, err, identifier.ErrInvalidDiseaseCode)
}

func TestProvision_UnknownDisease(t *testing.T) {
	svc, conn := newTestService(t)
	require.NoError(t, conn.Exec(`CREATE TABLE diseases (disease_code varchar(8) PRIMARY KEY, name_th text NOT NULL, name_en text, created_at timestamp, updated_at timestamp)`).Error)

	_, err := svc.Provision(context.Background(), facttabledomain.ProvisionRequest{
		TableName:   "b01_cases",
		DiseaseCode: "B01",
	})
	assert.ErrorIs(t, err, facttabledomain.ErrUnknownDisease)
}

func TestProvision_RequiresPostgres(t *testing.T) {
	svc, conn := newTestService(t)
	require.NoError(t, conn.Exec(`CREATE TABLE diseases (disease_code varchar(8) PRIMARY KEY, name_th text NOT NULL, name_en text, created_at timestamp, updated_at timestamp)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO diseases (disease_code, name_th) VALUES ('B01', 'test')`).Error)

	_, err := svc.Provision(context.Background(), facttabledomain.ProvisionRequest{
		TableName:   "b01_cases",
		DiseaseCode: "B01",
	})
	assert.ErrorIs(t, err, facttabledomain.ErrPostgresRequired)
}

func TestEnsureDefaultPartition_NonPostgresNoop(t *testing.T) {
	svc, conn := newTestService(t)

	err := svc.EnsureDefaultPartition(context.Background(), conn, "a90_cases")
	assert.NoError(t, err)
}

func TestEnsureDefaultPartition_RejectsBadName(t *testing.T) {
	svc, conn := newTestService(t)

	err := svc.EnsureDefaultPartition(context.Background(), conn, `a90"; DROP TABLE diseases; --`)
	// On a non-PostgreSQL connection the safety net exits before validation,
	// so there is nothing to assert beyond the absence of a panic.
	assert.NoError(t, err)
}

func TestSummary_CountsPerYear(t *testing.T) {
	svc, conn := newTestService(t)
	migrateMappings(t, conn)

	require.NoError(t, conn.Exec(`CREATE TABLE a90_cases (disease_code text, onset_date_parsed text)`).Error)
	for _, onset := range []string{"2023-01-05", "2023-07-19", "2024-02-01"} {
		require.NoError(t, conn.Exec(`INSERT INTO a90_cases (disease_code, onset_date_parsed) VALUES ('A90', ?)`, onset).Error)
	}

	rows, err := svc.Summary(context.Background(), "A90")
	require.NoError(t, err)
	assert.Equal(t, []facttabledomain.YearCount{
		{Year: "2023", Cases: 2},
		{Year: "2024", Cases: 1},
	}, rows)
}

func TestSummary_MissingTableIsEmpty(t *testing.T) {
	svc, conn := newTestService(t)
	migrateMappings(t, conn)

	ctx := context.Background()
	repo := facttablerepository.Provide()
	now := time.Now().UTC()
	require.NoError(t, repo.UpsertMapping(ctx, conn, &facttabledomain.FactTableMapping{
		DiseaseCode: "B01",
		SchemaName:  "public",
		Table:       "b01_cases",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	rows, err := svc.Summary(ctx, "B01")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
