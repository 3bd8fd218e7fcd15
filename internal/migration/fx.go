package migration

import (
	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	importrundomain "github.com/opendpho/epidash/internal/importrun/domain"
	"github.com/opendpho/epidash/internal/seed"
	"github.com/opendpho/epidash/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if db.IsPostgres(conn) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Local and test deployments run on lighter dialects without the
			// versioned migration path.
			err := conn.AutoMigrate(
				&diseasedomain.Disease{},
				&facttabledomain.FactTableMapping{},
				&importrundomain.ImportRun{},
			)
			if err != nil {
				return err
			}
		}

		return seed.EnsureBaselineDiseases(conn)
	}),
)
