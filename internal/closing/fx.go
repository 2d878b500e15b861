package closing

import (
	"github.com/bancanet/bancanet/internal/closing/repository"
	"github.com/bancanet/bancanet/internal/closing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("closing",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
