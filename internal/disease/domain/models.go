package domain

import "time"

// Disease is one row of the surveillance disease registry: the source of
// truth for which disease codes exist and what they are called.
type Disease struct {
	Code      string    `json:"disease_code" gorm:"column:disease_code;primaryKey;type:varchar(8)"`
	NameTH    string    `json:"name_th" gorm:"column:name_th;type:text;not null"`
	NameEN    *string   `json:"name_en" gorm:"column:name_en;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Disease) TableName() string { return "diseases" }
