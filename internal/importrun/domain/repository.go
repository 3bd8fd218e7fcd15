package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Record(ctx context.Context, db *gorm.DB, run *ImportRun) error
	// List returns the most recent runs, newest first, capped at limit.
	List(ctx context.Context, db *gorm.DB, limit int) ([]ImportRun, error)
}
