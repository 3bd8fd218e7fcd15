package domain

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// FactTableMapping records which physical relation holds a disease's fact
// rows. At most one mapping exists per disease code; re-provisioning updates
// it in place.
type FactTableMapping struct {
	DiseaseCode string         `json:"disease_code" gorm:"column:disease_code;primaryKey;type:varchar(8)"`
	SchemaName  string         `json:"schema_name" gorm:"column:schema_name;type:text;not null;default:public"`
	Table       string         `json:"table_name" gorm:"column:table_name;type:text;not null"`
	IsActive    bool           `json:"is_active" gorm:"column:is_active;not null;default:true"`
	Partitions  datatypes.JSON `json:"partitions" gorm:"column:partitions"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FactTableMapping) TableName() string { return "disease_fact_tables" }

// TableRef names one fact relation.
type TableRef struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// Qualified returns the quoted schema-qualified relation name for use in SQL.
func (r TableRef) Qualified() string {
	if r.Schema == "" {
		return pq.QuoteIdentifier(r.Table)
	}
	return pq.QuoteIdentifier(r.Schema) + "." + pq.QuoteIdentifier(r.Table)
}

// ProvisionResult describes the schema objects a provisioning run created (or
// found already in place).
type ProvisionResult struct {
	Table          TableRef `json:"table"`
	Sequence       string   `json:"sequence"`
	Index          string   `json:"index"`
	DiseaseCode    string   `json:"disease_code,omitempty"`
	Partitions     []string `json:"partitions"`
	BaselineYear   int      `json:"baseline_year"`
	MappingWritten bool     `json:"mapping_written"`
}

// YearCount is one row of the per-year fact summary.
type YearCount struct {
	Year  string `json:"year"`
	Cases int64  `json:"cases"`
}
