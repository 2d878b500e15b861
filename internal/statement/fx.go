package statement

import (
	"github.com/bancanet/bancanet/internal/statement/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("statement",
	fx.Provide(repository.NewRepository),
)
