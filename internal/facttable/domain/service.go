package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// Provision creates a partitioned fact relation and, when a disease code
	// is given, records the disease-to-table mapping. Idempotent.
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)

	// Resolve maps a disease code to the relation analytical queries should
	// hit. Never fails: unknown or unmapped codes fall back to the default
	// relation.
	Resolve(ctx context.Context, diseaseCode string) TableRef

	// EnsureDefaultPartition guarantees a catch-all partition exists on a
	// partitioned relation. Must run inside the same transaction as the bulk
	// write that follows it. No-op for ordinary relations and non-PostgreSQL
	// dialects.
	EnsureDefaultPartition(ctx context.Context, tx *gorm.DB, tableName string) error

	// Summary counts fact rows per onset year for dashboard consumption.
	Summary(ctx context.Context, diseaseCode string) ([]YearCount, error)
}

type ProvisionRequest struct {
	TableName   string `json:"table_name"`
	DiseaseCode string `json:"disease_code,omitempty"`
}

var (
	ErrUnknownDisease   = errors.New("unknown_disease")
	ErrPostgresRequired = errors.New("postgres_required")
)
