package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// EnsureMappingTable creates the disease_fact_tables relation if absent.
	EnsureMappingTable(ctx context.Context, db *gorm.DB) error
	UpsertMapping(ctx context.Context, db *gorm.DB, m *FactTableMapping) error
	FindActiveMapping(ctx context.Context, db *gorm.DB, diseaseCode string) (*FactTableMapping, error)

	// RelationKind returns the pg_class relkind of a relation in the current
	// schema ("" when the relation does not exist).
	RelationKind(ctx context.Context, db *gorm.DB, tableName string) (string, error)
	// HasDefaultPartition reports whether a partitioned relation already has
	// a catch-all partition attached.
	HasDefaultPartition(ctx context.Context, db *gorm.DB, tableName string) (bool, error)
}
