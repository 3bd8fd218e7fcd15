package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Disease, error)
	List(ctx context.Context) ([]Disease, error)
	// NameFor resolves a disease code to its display name.
	NameFor(ctx context.Context, code string) (string, error)
}

type CreateRequest struct {
	Code   string  `json:"disease_code"`
	NameTH string  `json:"name_th"`
	NameEN *string `json:"name_en"`
}

var (
	ErrInvalidName = errors.New("invalid_disease_name")
	ErrExists      = errors.New("disease_exists")
	ErrNotFound    = errors.New("disease_not_found")
)
