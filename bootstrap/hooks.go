package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback run during shutdown.
type Hook func(ctx context.Context) error

// OnStop registers hooks that run at shutdown before the exporters are
// flushed, in registration order.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks runs every hook and joins their errors.
func runHooks(ctx context.Context, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("hook %d failed: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
