package repository

import (
	"context"
	"errors"

	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	"github.com/opendpho/epidash/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() facttabledomain.Repository {
	return &repo{}
}

// EnsureMappingTable backstops the startup migration so a provisioning run
// never fails for lack of the mapping relation.
func (r *repo) EnsureMappingTable(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Exec(
		`CREATE TABLE IF NOT EXISTS disease_fact_tables (
			disease_code varchar(8) PRIMARY KEY,
			schema_name text NOT NULL DEFAULT 'public',
			table_name text NOT NULL,
			is_active boolean NOT NULL DEFAULT true,
			partitions jsonb,
			created_at timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error
}

func (r *repo) UpsertMapping(ctx context.Context, conn *gorm.DB, m *facttabledomain.FactTableMapping) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO disease_fact_tables (disease_code, schema_name, table_name, is_active, partitions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (disease_code) DO UPDATE SET
			schema_name = EXCLUDED.schema_name,
			table_name = EXCLUDED.table_name,
			is_active = EXCLUDED.is_active,
			partitions = EXCLUDED.partitions,
			updated_at = EXCLUDED.updated_at`,
		m.DiseaseCode,
		m.SchemaName,
		m.Table,
		m.IsActive,
		m.Partitions,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindActiveMapping(ctx context.Context, conn *gorm.DB, diseaseCode string) (*facttabledomain.FactTableMapping, error) {
	var mapping facttabledomain.FactTableMapping
	err := conn.WithContext(ctx).
		Where("disease_code = ? AND is_active = ?", diseaseCode, true).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || db.IsUndefinedTableErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *repo) RelationKind(ctx context.Context, conn *gorm.DB, tableName string) (string, error) {
	var kind *string
	err := conn.WithContext(ctx).Raw(
		`SELECT c.relkind::text
		 FROM pg_catalog.pg_class c
		 JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		 WHERE c.relname = ? AND n.nspname = current_schema()`,
		tableName,
	).Scan(&kind).Error
	if err != nil {
		return "", err
	}
	if kind == nil {
		return "", nil
	}
	return *kind, nil
}

func (r *repo) HasDefaultPartition(ctx context.Context, conn *gorm.DB, tableName string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM pg_catalog.pg_partitioned_table pt
		 JOIN pg_catalog.pg_class c ON c.oid = pt.partrelid
		 JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		 WHERE c.relname = ? AND n.nspname = current_schema() AND pt.partdefid <> 0`,
		tableName,
	).Scan(&count).Error
	return count > 0, err
}
