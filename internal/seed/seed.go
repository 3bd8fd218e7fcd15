package seed

import (
	"context"
	"errors"
	"time"

	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func strptr(s string) *string { return &s }

// baselineDiseases are the registry rows every deployment starts with; the
// dashboard's historical data predates per-disease provisioning and assumes
// the dengue codes exist.
var baselineDiseases = []diseasedomain.Disease{
	{Code: "A90", NameTH: "ไข้เลือดออก", NameEN: strptr("Dengue fever")},
	{Code: "A91", NameTH: "ไข้เลือดออกช็อก", NameEN: strptr("Dengue haemorrhagic fever")},
}

// EnsureBaselineDiseases seeds the default registry rows, leaving any
// operator-edited row untouched.
func EnsureBaselineDiseases(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range baselineDiseases {
			d.CreatedAt = time.Now().UTC()
			d.UpdatedAt = d.CreatedAt
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
