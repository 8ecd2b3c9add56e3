package persistence

import (
	"context"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/stream"
)

// Tables tracks a version counter per record table. Stores bump a table after
// every committed write so live queries know to re-run.
type Tables struct {
	Activities *stream.Feed[uint64]
	Meals      *stream.Feed[uint64]
	Steps      *stream.Feed[uint64]
}

// NewTables constructs zeroed version counters.
func NewTables() *Tables {
	return &Tables{
		Activities: stream.NewFeed[uint64](0),
		Meals:      stream.NewFeed[uint64](0),
		Steps:      stream.NewFeed[uint64](0),
	}
}

// Bump advances a table version.
func Bump(table *stream.Feed[uint64]) {
	table.Update(func(v uint64) uint64 { return v + 1 })
}

// Watch runs query once, returning its error if it fails, then again after
// every change to table. Results stream on the returned channel until ctx ends.
// Failed re-queries are logged and skipped.
func Watch[T any](ctx context.Context, table *stream.Feed[uint64], query func(context.Context) (T, error), logger logrus.FieldLogger) (<-chan T, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	changes := table.Subscribe(watchCtx)
	<-changes

	initial, err := query(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan T, 1)
	out <- initial
	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				result, err := query(watchCtx)
				if err != nil {
					if watchCtx.Err() == nil {
						logger.WithError(err).Warn("live query failed")
					}
					continue
				}
				select {
				case out <- result:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
