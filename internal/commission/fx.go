package commission

import (
	"github.com/bancanet/bancanet/internal/commission/repository"
	"github.com/bancanet/bancanet/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
