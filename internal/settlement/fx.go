package settlement

import (
	"github.com/bancanet/bancanet/internal/settlement/repository"
	"github.com/bancanet/bancanet/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement",
	fx.Provide(repository.NewConfigRepository),
	fx.Provide(service.New),
)
