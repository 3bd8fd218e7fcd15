package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Import runs the full pipeline: parse, validate, then write every valid
	// row in one transaction. Row-level errors are reported in the Result,
	// not returned, unless the caller asked for strict validation.
	Import(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrPayloadTooLarge    = errors.New("payload_too_large")
	ErrEmptyFile          = errors.New("empty_file")
	ErrMissingDiseaseCode = errors.New("missing_disease_code")
	ErrMissingTableName   = errors.New("missing_table_name")
	ErrValidationRejected = errors.New("validation_rejected")
	ErrNoValidRows        = errors.New("no_valid_rows")
)
