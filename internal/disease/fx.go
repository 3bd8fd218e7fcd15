package disease

import (
	"github.com/opendpho/epidash/internal/disease/repository"
	"github.com/opendpho/epidash/internal/disease/service"
	"go.uber.org/fx"
)

var Module = fx.Module("disease.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
