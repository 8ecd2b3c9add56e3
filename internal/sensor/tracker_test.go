package sensor

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/persistence/memory"
	"example.com/smartfit/internal/preferences"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTracker(t *testing.T, c *clock, opts ...Option) (*Tracker, *memory.Store, *preferences.Store) {
	t.Helper()
	store := memory.NewStore()
	prefs := preferences.Open(filepath.Join(t.TempDir(), "prefs.yaml"), nil)
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithClock(c.now), WithLogger(logger)}, opts...)
	return NewTracker(store, prefs, opts...), store, prefs
}

func TestRecordTracksDailyDelta(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 14, 8, 0, 0, 0, time.Local)}
	tracker, _, _ := newTracker(t, c)

	delta, err := tracker.Record(10000)
	require.NoError(t, err)
	require.Equal(t, 0, delta)

	delta, err = tracker.Record(10250)
	require.NoError(t, err)
	require.Equal(t, 250, delta)

	// Reboot: the counter restarts from zero and the delta carries on.
	delta, err = tracker.Record(40)
	require.NoError(t, err)
	require.Equal(t, 250, delta)

	delta, err = tracker.Record(100)
	require.NoError(t, err)
	require.Equal(t, 310, delta)

	// A new day starts a new baseline.
	c.t = c.t.Add(domain.Day)
	delta, err = tracker.Record(150)
	require.NoError(t, err)
	require.Equal(t, 0, delta)
}

func TestFlushUpdatesTodaysRecordInPlace(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 3, 14, 8, 0, 0, 0, time.Local)}
	tracker, store, prefs := newTracker(t, c)

	_, err := tracker.Record(500)
	require.NoError(t, err)
	_, err = tracker.Record(800)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))

	c.t = c.t.Add(time.Hour)
	_, err = tracker.Record(1200)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))

	day := domain.DayWindow(c.t)
	records, err := store.ListSteps(ctx, day.Start, day.End)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 700, records[0].Steps)
	require.Equal(t, domain.StepSourceSensor, records[0].Source)

	require.Equal(t, preferences.SensorBaseline{Day: "2024-03-14", Baseline: 500, LastDelta: 700}, prefs.SensorBaseline())

	_, pending := tracker.Pending()
	require.False(t, pending)
	require.NoError(t, tracker.Flush(ctx))
}

func TestFlushAfterMidnightKeepsPreviousDay(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 3, 14, 23, 59, 0, 0, time.Local)}
	tracker, store, _ := newTracker(t, c)

	_, err := tracker.Record(100)
	require.NoError(t, err)
	_, err = tracker.Record(160)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Minute)
	require.NoError(t, tracker.Flush(ctx))

	yesterday := domain.DayWindow(time.Date(2024, 3, 14, 12, 0, 0, 0, time.Local))
	records, err := store.ListSteps(ctx, yesterday.Start, yesterday.End)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 60, records[0].Steps)
}

func TestDayChangeKeepsUnflushedSteps(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 3, 14, 10, 0, 0, 0, time.Local)}
	tracker, store, _ := newTracker(t, c)

	_, err := tracker.Record(1000)
	require.NoError(t, err)
	_, err = tracker.Record(1100)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))

	c.t = time.Date(2024, 3, 14, 23, 55, 0, 0, time.Local)
	_, err = tracker.Record(1500)
	require.NoError(t, err)

	c.t = time.Date(2024, 3, 15, 0, 5, 0, 0, time.Local)
	delta, err := tracker.Record(1510)
	require.NoError(t, err)
	require.Equal(t, 0, delta)
	_, err = tracker.Record(1530)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))

	first := domain.DayWindow(time.Date(2024, 3, 14, 12, 0, 0, 0, time.Local))
	records, err := store.ListSteps(ctx, first.Start, first.End)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 500, records[0].Steps)

	second := domain.DayWindow(c.t)
	records, err = store.ListSteps(ctx, second.Start, second.End)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 20, records[0].Steps)
}

func TestFlushPublishesStepEvents(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 3, 14, 8, 0, 0, 0, time.Local)}
	notifier := &recordingNotifier{}
	tracker, _, _ := newTracker(t, c, WithNotifier(notifier))

	_, err := tracker.Record(200)
	require.NoError(t, err)
	_, err = tracker.Record(260)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))
	_, err = tracker.Record(300)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(ctx))
	require.NoError(t, tracker.Flush(ctx))

	require.Len(t, notifier.events, 2)
	for _, event := range notifier.events {
		require.Equal(t, "steps.updated", event.Type)
		require.Equal(t, notifier.events[0].RecordID, event.RecordID)
		require.NotZero(t, event.RecordID)
	}
	last, ok := notifier.events[1].Record.(domain.StepCountRecord)
	require.True(t, ok)
	require.Equal(t, 100, last.Steps)
	require.Equal(t, domain.StepSourceSensor, last.Source)
}

type recordingNotifier struct {
	events []domain.ChangeEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.ChangeEvent) {
	n.events = append(n.events, event)
}

func TestBaselineSurvivesRestart(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 14, 8, 0, 0, 0, time.Local)}
	tracker, store, prefs := newTracker(t, c)

	_, err := tracker.Record(1000)
	require.NoError(t, err)
	_, err = tracker.Record(1300)
	require.NoError(t, err)
	require.NoError(t, tracker.Flush(context.Background()))

	restarted := NewTracker(store, prefs, WithClock(c.now))
	delta, err := restarted.Record(1400)
	require.NoError(t, err)
	require.Equal(t, 400, delta)
}

func TestRecordRejectedWhenDisabled(t *testing.T) {
	c := &clock{t: time.Now()}
	tracker, _, _ := newTracker(t, c, WithEnabled(func() bool { return false }))

	_, err := tracker.Record(10)
	require.ErrorIs(t, err, ErrTrackingDisabled)
}

func TestRunFlushesOnShutdown(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 14, 8, 0, 0, 0, time.Local)}
	tracker, store, _ := newTracker(t, c)
	_, err := tracker.Record(10)
	require.NoError(t, err)
	_, err = tracker.Record(35)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx, time.Hour) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	day := domain.DayWindow(c.t)
	records, err := store.ListSteps(context.Background(), day.Start, day.End)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 25, records[0].Steps)
}

func TestSuperviseFollowsToggle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running atomic.Int32
	var starts atomic.Int32
	run := func(ctx context.Context) error {
		starts.Add(1)
		running.Add(1)
		defer running.Add(-1)
		<-ctx.Done()
		return ctx.Err()
	}

	enabled := make(chan bool)
	logger, _ := test.NewNullLogger()
	finished := make(chan struct{})
	go func() {
		Supervise(ctx, enabled, run, logger)
		close(finished)
	}()

	enabled <- true
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second, 5*time.Millisecond)
	enabled <- true
	enabled <- false
	require.Eventually(t, func() bool { return running.Load() == 0 }, time.Second, 5*time.Millisecond)
	enabled <- true
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(2), starts.Load())

	close(enabled)
	<-finished
	require.Equal(t, int32(0), running.Load())
}
