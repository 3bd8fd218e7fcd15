package service

import (
	"context"
	"strings"
	"time"

	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
	"github.com/opendpho/epidash/internal/identifier"
	"github.com/opendpho/epidash/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo diseasedomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo diseasedomain.Repository
}

func New(p Params) diseasedomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("disease.service"),
		repo: p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req diseasedomain.CreateRequest) (*diseasedomain.Disease, error) {
	code, err := identifier.DiseaseCode(req.Code)
	if err != nil {
		return nil, err
	}

	nameTH := strings.TrimSpace(req.NameTH)
	if nameTH == "" {
		return nil, diseasedomain.ErrInvalidName
	}

	var nameEN *string
	if req.NameEN != nil {
		if v := strings.TrimSpace(*req.NameEN); v != "" {
			nameEN = &v
		}
	}

	now := time.Now().UTC()
	d := &diseasedomain.Disease{
		Code:      code,
		NameTH:    nameTH,
		NameEN:    nameEN,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, d); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, diseasedomain.ErrExists
		}
		return nil, err
	}

	s.log.Info("disease registered", zap.String("disease_code", code))
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]diseasedomain.Disease, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) NameFor(ctx context.Context, code string) (string, error) {
	normalized, err := identifier.DiseaseCode(code)
	if err != nil {
		return "", err
	}

	name, ok, err := s.repo.LookupName(ctx, s.db, normalized)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", diseasedomain.ErrNotFound
	}
	return name, nil
}
