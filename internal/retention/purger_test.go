package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/persistence/memory"
)

func TestRunDeletesRecordsPastRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()

	for _, age := range []time.Duration{0, 29 * domain.Day, 31 * domain.Day, 45 * domain.Day} {
		_, err := store.InsertStepCount(ctx, domain.StepCountRecord{
			Steps:     100,
			Timestamp: now.Add(-age),
			Source:    domain.StepSourceManual,
		})
		require.NoError(t, err)
	}

	logger, _ := test.NewNullLogger()
	purger := NewPurger(store, WithClock(func() time.Time { return now }), WithLogger(logger))

	n, err := purger.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	left, err := store.ListSteps(ctx, time.Time{}, domain.Unbounded)
	require.NoError(t, err)
	require.Len(t, left, 2)
	require.Equal(t, time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC), purger.Cutoff())
}

func TestRunWrapsStoreErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	purger := NewPurger(failingDeleter{}, WithLogger(logger))

	_, err := purger.Run(context.Background())
	require.ErrorContains(t, err, "purge step records")
}

func TestScheduleRejectsBadCronExpression(t *testing.T) {
	purger := NewPurger(failingDeleter{})
	_, err := purger.Schedule(context.Background(), "every now and then")
	require.Error(t, err)

	c, err := purger.Schedule(context.Background(), "@every 6h")
	require.NoError(t, err)
	<-c.Stop().Done()
}

type failingDeleter struct{}

func (failingDeleter) DeleteStepsBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("disk full")
}
