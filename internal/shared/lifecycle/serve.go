// Package lifecycle runs long-lived components side by side and shuts them
// down together.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Listener is a component with a blocking Start. Start returns when the
// component is done or ctx is cancelled; Stop shuts it down within the
// deadline of its context.
type Listener interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ErrDone lets a listener end the whole group without reporting a failure,
// for example when the user quits the terminal UI.
var ErrDone = errors.New("listener finished")

// Serve starts every listener and waits. When ctx is cancelled or any
// listener returns, the others are stopped in order, each with its own
// timeout.
func Serve(ctx context.Context, lis ...Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)

	for _, li := range lis {
		eg.Go(func() error {
			return li.Start(egCtx)
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()

		var errs []error
		for _, li := range lis {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := li.Stop(stopCtx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		return errors.Join(errs...)
	})

	err := eg.Wait()
	if errors.Is(err, ErrDone) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
