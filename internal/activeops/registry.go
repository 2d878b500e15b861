package activeops

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrShuttingDown = errors.New("shutting_down")

// Registry tracks in-flight batch operations so graceful shutdown can
// wait for them instead of interrupting a run mid-batch. New operations
// are rejected once shutdown has begun.
type Registry struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
	active   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]int)}
}

// Begin registers an operation by name. The returned done func must be
// called when the operation finishes.
func (r *Registry) Begin(name string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return nil, ErrShuttingDown
	}
	r.active[name]++
	r.wg.Add(1)
	var once sync.Once
	done := func() {
		once.Do(func() {
			r.mu.Lock()
			r.active[name]--
			if r.active[name] <= 0 {
				delete(r.active, name)
			}
			r.mu.Unlock()
			r.wg.Done()
		})
	}
	return done, nil
}

// Shutdown stops accepting new operations and waits for in-flight ones,
// bounded by ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var Module = fx.Module("activeops",
	fx.Provide(NewRegistry),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, reg *Registry, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := reg.Shutdown(ctx); err != nil {
				log.Warn("shutdown timed out waiting for active operations", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
