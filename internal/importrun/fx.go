package importrun

import (
	"github.com/opendpho/epidash/internal/importrun/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("importrun",
	fx.Provide(repository.Provide),
)
