package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, d *Disease) error
	List(ctx context.Context, db *gorm.DB) ([]Disease, error)
	// LookupName returns the display name for a code, or ok=false when no
	// registry row (or no usable name column) matches.
	LookupName(ctx context.Context, db *gorm.DB, code string) (name string, ok bool, err error)
	Exists(ctx context.Context, db *gorm.DB, code string) (bool, error)
}
