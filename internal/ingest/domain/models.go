package domain

// Request is one ingestion attempt: the raw upload plus the caller-supplied
// routing fields. The disease code on every stored row comes from here, never
// from the file.
type Request struct {
	DiseaseCode string
	TableName   string
	SkipBadRows bool
	Data        []byte
}

// RowError names one rejected line. Line numbers are 1-based and count the
// header as line 1.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result summarizes an ingestion run. Skipped counts rows rejected by
// validation; rows discarded by the primary-key conflict policy are simply
// absent from Inserted.
type Result struct {
	DiseaseCode string     `json:"disease_code"`
	TableName   string     `json:"table_name"`
	Inserted    int        `json:"inserted"`
	Skipped     int        `json:"skipped"`
	TotalRows   int        `json:"total_rows"`
	Errors      []RowError `json:"errors,omitempty"`
}

// RowRecord is one validated CSV line, shaped like the fact relation's
// writable columns. Pointer fields are absent when the source cell was empty
// or a null marker.
type RowRecord struct {
	ID                  *int64
	DiseaseCode         string
	Gender              *string
	AgeY                *int
	Nationality         *string
	Occupation          *string
	Province            *string
	District            *string
	OnsetDate           *string
	OnsetDateParsed     string
	TreatedDate         *string
	TreatedDateParsed   *string
	DiagnosisDate       *string
	DiagnosisDateParsed *string
	DeathDate           *string
	DeathDateParsed     *string
}
