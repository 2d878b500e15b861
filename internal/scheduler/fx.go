package scheduler

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

// Start launches the run-forever loop under the fx lifecycle.
func Start(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(stopped)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-stopped:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
