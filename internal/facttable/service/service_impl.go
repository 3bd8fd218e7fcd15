package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/opendpho/epidash/internal/config"
	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	"github.com/opendpho/epidash/internal/facttable/schema"
	"github.com/opendpho/epidash/internal/identifier"
	"github.com/opendpho/epidash/internal/observability/metrics"
	"github.com/opendpho/epidash/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultRef is where analytical queries land when no mapping resolves. The
// dashboard predates per-disease provisioning; its historical data lives in
// the dengue table.
var defaultRef = facttabledomain.TableRef{Schema: "public", Table: "a90_cases"}

// staticRoutes maps disease codes that predate the mapping table to their
// long-standing relations.
var staticRoutes = map[string]facttabledomain.TableRef{
	"A90": {Schema: "public", Table: "a90_cases"},
	"A91": {Schema: "public", Table: "a90_cases"},
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    facttabledomain.Repository
	Disease diseasedomain.Repository
	Holder  *config.IngestionConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    facttabledomain.Repository
	disease diseasedomain.Repository
	holder  *config.IngestionConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) facttabledomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("facttable.service"),
		repo:    p.Repo,
		disease: p.Disease,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

func (s *Service) Provision(ctx context.Context, req facttabledomain.ProvisionRequest) (*facttabledomain.ProvisionResult, error) {
	var (
		tableName string
		code      string
		err       error
	)
	if req.DiseaseCode != "" {
		tableName, code, err = identifier.TablePair(req.TableName, req.DiseaseCode)
		if err != nil {
			return nil, err
		}
		known, err := s.disease.Exists(ctx, s.db, code)
		if err != nil {
			return nil, fmt.Errorf("check disease %s: %w", code, err)
		}
		if !known {
			return nil, facttabledomain.ErrUnknownDisease
		}
	} else {
		tableName, err = identifier.TableName(req.TableName)
		if err != nil {
			return nil, err
		}
	}

	if !db.IsPostgres(s.db) {
		return nil, facttabledomain.ErrPostgresRequired
	}

	baselineYear := s.holder.Current().BaselineYear()
	names := schema.Derive(tableName, baselineYear)

	result := &facttabledomain.ProvisionResult{
		Table:        facttabledomain.TableRef{Schema: "public", Table: names.Table},
		Sequence:     names.Sequence,
		Index:        names.Index,
		DiseaseCode:  code,
		BaselineYear: baselineYear,
	}
	result.Partitions = append(result.Partitions, names.Quarters[:]...)
	result.Partitions = append(result.Partitions, names.DefaultPartition)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.EnsureMappingTable(ctx, tx); err != nil {
			return fmt.Errorf("ensure mapping table: %w", err)
		}
		steps := []struct {
			what string
			ddl  string
		}{
			{"create sequence " + names.Sequence, schema.CreateSequence(names)},
			{"create table " + names.Table, schema.CreateTable(names)},
			{"bind sequence " + names.Sequence, schema.BindSequence(names)},
			{"create index " + names.Index, schema.CreateIndex(names)},
			{"create partition " + names.Quarters[0], schema.CreateQuarter(names, baselineYear, 0)},
			{"create partition " + names.Quarters[1], schema.CreateQuarter(names, baselineYear, 1)},
			{"create partition " + names.Quarters[2], schema.CreateQuarter(names, baselineYear, 2)},
			{"create partition " + names.Quarters[3], schema.CreateQuarter(names, baselineYear, 3)},
			{"create partition " + names.DefaultPartition, schema.CreateDefaultPartition(names)},
		}
		for _, step := range steps {
			if err := tx.Exec(step.ddl).Error; err != nil {
				return fmt.Errorf("%s: %w", step.what, err)
			}
		}

		if code == "" {
			return nil
		}
		partitions, err := json.Marshal(result.Partitions)
		if err != nil {
			return fmt.Errorf("encode partitions: %w", err)
		}
		now := time.Now().UTC()
		mapping := &facttabledomain.FactTableMapping{
			DiseaseCode: code,
			SchemaName:  "public",
			Table:       tableName,
			IsActive:    true,
			Partitions:  partitions,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.UpsertMapping(ctx, tx, mapping); err != nil {
			return fmt.Errorf("upsert mapping for %s: %w", code, err)
		}
		result.MappingWritten = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil && code != "" {
		s.metrics.RecordProvision(ctx, code)
	}
	s.log.Info("fact table provisioned",
		zap.String("table_name", tableName),
		zap.String("disease_code", code),
		zap.Int("baseline_year", baselineYear),
	)
	return result, nil
}

func (s *Service) Resolve(ctx context.Context, diseaseCode string) facttabledomain.TableRef {
	code, err := identifier.DiseaseCode(diseaseCode)
	if err != nil {
		return defaultRef
	}

	mapping, err := s.repo.FindActiveMapping(ctx, s.db, code)
	if err != nil {
		s.log.Warn("mapping lookup failed, falling back",
			zap.String("disease_code", code), zap.Error(err))
	}
	if mapping != nil {
		table, terr := identifier.TableName(mapping.Table)
		schemaName := mapping.SchemaName
		if schemaName == "" {
			schemaName = "public"
		}
		schemaName, serr := identifier.SchemaName(schemaName)
		if terr == nil && serr == nil {
			return facttabledomain.TableRef{Schema: schemaName, Table: table}
		}
		s.log.Warn("stored mapping failed validation, falling back",
			zap.String("disease_code", code),
			zap.String("table_name", mapping.Table),
			zap.String("schema_name", mapping.SchemaName),
		)
	}

	if ref, ok := staticRoutes[code]; ok {
		return ref
	}
	return defaultRef
}

func (s *Service) EnsureDefaultPartition(ctx context.Context, tx *gorm.DB, tableName string) error {
	if !db.IsPostgres(tx) {
		return nil
	}
	table, err := identifier.TableName(tableName)
	if err != nil {
		return err
	}

	kind, err := s.repo.RelationKind(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("inspect relation %s: %w", table, err)
	}
	if kind != "p" {
		return nil
	}
	has, err := s.repo.HasDefaultPartition(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("inspect partitions of %s: %w", table, err)
	}
	if has {
		return nil
	}

	name, ddl := schema.DefaultPartitionFor(table)
	if err := tx.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("attach default partition %s: %w", name, err)
	}
	s.log.Warn("attached missing default partition",
		zap.String("table_name", table),
		zap.String("partition", name),
	)
	return nil
}

func (s *Service) Summary(ctx context.Context, diseaseCode string) ([]facttabledomain.YearCount, error) {
	ref := s.Resolve(ctx, diseaseCode)
	relation := ref.Qualified()
	if !db.IsPostgres(s.db) {
		// Schema qualifiers mean attached databases outside PostgreSQL.
		relation = pq.QuoteIdentifier(ref.Table)
	}

	var rows []facttabledomain.YearCount
	err := s.db.WithContext(ctx).Raw(
		`SELECT substr(CAST(onset_date_parsed AS TEXT), 1, 4) AS year, COUNT(*) AS cases
		 FROM ` + relation + `
		 GROUP BY 1
		 ORDER BY 1`,
	).Scan(&rows).Error
	if err != nil {
		if db.IsUndefinedTableErr(err) {
			return []facttabledomain.YearCount{}, nil
		}
		return nil, err
	}
	if rows == nil {
		rows = []facttabledomain.YearCount{}
	}
	return rows, nil
}
