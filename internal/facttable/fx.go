package facttable

import (
	"github.com/opendpho/epidash/internal/facttable/repository"
	"github.com/opendpho/epidash/internal/facttable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("facttable.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
