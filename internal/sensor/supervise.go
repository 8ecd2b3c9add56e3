package sensor

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// activeRun is one ingestion run started by Supervise.
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startRun(ctx context.Context, run func(context.Context) error, logger logrus.FieldLogger) *activeRun {
	runCtx, cancel := context.WithCancel(ctx)
	r := &activeRun{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		if err := run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("step tracking exited")
		}
	}()
	return r
}

// stop cancels the run and waits for it to return.
func (r *activeRun) stop() {
	r.cancel()
	<-r.done
}

// Supervise starts run whenever enabled delivers true and cancels it when it
// delivers false. It returns once ctx ends or enabled closes, after the
// current run has stopped.
func Supervise(ctx context.Context, enabled <-chan bool, run func(context.Context) error, logger logrus.FieldLogger) {
	var current *activeRun
	defer func() {
		if current != nil {
			current.stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case on, ok := <-enabled:
			if !ok {
				return
			}
			switch {
			case on && current == nil:
				current = startRun(ctx, run, logger)
				logger.Info("step tracking started")
			case !on && current != nil:
				current.stop()
				current = nil
				logger.Info("step tracking stopped")
			}
		}
	}
}
