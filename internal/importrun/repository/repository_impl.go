package repository

import (
	"context"

	importrundomain "github.com/opendpho/epidash/internal/importrun/domain"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type repo struct{}

func Provide() importrundomain.Repository {
	return &repo{}
}

func (r *repo) Record(ctx context.Context, db *gorm.DB, run *importrundomain.ImportRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]importrundomain.ImportRun, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	var runs []importrundomain.ImportRun
	err := db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
