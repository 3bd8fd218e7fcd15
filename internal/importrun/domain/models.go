package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// ImportRun is the audit record of one ingestion attempt. Only aggregate
// counts are kept; per-line error details stay in the response.
type ImportRun struct {
	ID          snowflake.ID `json:"id,string" gorm:"primaryKey"`
	DiseaseCode string       `json:"disease_code" gorm:"column:disease_code;type:varchar(8);not null;index"`
	Table       string       `json:"table_name" gorm:"column:table_name;type:text;not null"`
	Status      string       `json:"status" gorm:"column:status;type:text;not null"`
	TotalRows   int          `json:"total_rows" gorm:"column:total_rows;not null"`
	Inserted    int          `json:"inserted" gorm:"column:inserted;not null"`
	Skipped     int          `json:"skipped" gorm:"column:skipped;not null"`
	SkipBadRows bool         `json:"skip_bad_rows" gorm:"column:skip_bad_rows;not null"`
	DurationMS  int64        `json:"duration_ms" gorm:"column:duration_ms;not null"`
	Detail      string       `json:"detail,omitempty" gorm:"column:detail;type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ImportRun) TableName() string { return "import_runs" }
