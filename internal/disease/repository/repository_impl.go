package repository

import (
	"context"
	"strings"

	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type repo struct{}

func Provide() diseasedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *diseasedomain.Disease) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO diseases (disease_code, name_th, name_en, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.Code,
		d.NameTH,
		d.NameEN,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]diseasedomain.Disease, error) {
	var diseases []diseasedomain.Disease
	err := db.WithContext(ctx).
		Order("disease_code asc").
		Find(&diseases).Error
	return diseases, err
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&diseasedomain.Disease{}).
		Where("disease_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// nameLookup is one way a deployment's registry table may spell the
// code/name pair. A strategy either finds a non-empty name or does not;
// failures (including a missing column on a legacy schema) mean "not found
// here, try the next one".
type nameLookup func(ctx context.Context, db *gorm.DB, code string) (string, bool)

// Registry schemas have drifted across provincial deployments. Strategies are
// tried in order; the first non-empty result wins.
var nameLookups = []nameLookup{
	scanName(`SELECT name_th FROM diseases WHERE disease_code = ? LIMIT 1`),
	scanName(`SELECT name_th FROM diseases WHERE code = ? LIMIT 1`),
	scanName(`SELECT COALESCE(name_th, name_en, disease_code) FROM diseases WHERE disease_code = ? LIMIT 1`),
}

func (r *repo) LookupName(ctx context.Context, db *gorm.DB, code string) (string, bool, error) {
	for _, lookup := range nameLookups {
		if name, ok := lookup(ctx, db, code); ok {
			return name, true, nil
		}
	}
	return "", false, nil
}

func scanName(query string) nameLookup {
	return func(ctx context.Context, db *gorm.DB, code string) (string, bool) {
		var name *string
		// A strategy querying a column the schema does not have fails loudly at
		// the driver level; keep those attempts out of the query log.
		session := db.Session(&gorm.Session{Logger: gormlogger.Discard})
		if err := session.WithContext(ctx).Raw(query, code).Scan(&name).Error; err != nil {
			return "", false
		}
		if name == nil || strings.TrimSpace(*name) == "" {
			return "", false
		}
		return strings.TrimSpace(*name), true
	}
}
