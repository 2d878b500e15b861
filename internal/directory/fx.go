package directory

import (
	"github.com/bancanet/bancanet/internal/directory/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("directory",
	fx.Provide(repository.NewRepository),
)
