// Package sensor turns cumulative step-sensor readings into daily step records.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/observability"
	"example.com/smartfit/internal/preferences"
)

// ErrTrackingDisabled is returned for readings received while tracking is off.
var ErrTrackingDisabled = errors.New("step tracking disabled")

const dayLayout = "2006-01-02"

// BaselineStore persists the per-day sensor reference point.
type BaselineStore interface {
	SensorBaseline() preferences.SensorBaseline
	SetSensorBaseline(preferences.SensorBaseline) error
}

// Tracker keeps the current day's baseline and pending delta.
type Tracker struct {
	steps     domain.StepStore
	baselines BaselineStore
	notifier  domain.ChangeNotifier
	enabled   func() bool
	now       func() time.Time
	logger    logrus.FieldLogger

	mu       sync.Mutex
	baseline preferences.SensorBaseline
	dirty    bool
	// previous holds a finished day whose final delta is not yet stored.
	previous *preferences.SensorBaseline
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithNotifier publishes a change event for every stored sensor record.
func WithNotifier(n domain.ChangeNotifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithEnabled gates Record on a predicate, normally the tracking preference.
func WithEnabled(enabled func() bool) Option {
	return func(t *Tracker) { t.enabled = enabled }
}

// NewTracker constructs a Tracker, restoring the last persisted baseline.
func NewTracker(steps domain.StepStore, baselines BaselineStore, opts ...Option) *Tracker {
	t := &Tracker{
		steps:     steps,
		baselines: baselines,
		enabled:   func() bool { return true },
		now:       time.Now,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.baseline = baselines.SensorBaseline()
	return t
}

// Record accepts a cumulative since-boot reading and returns today's delta.
// The first reading of a day becomes the baseline. A reading below the
// baseline means the device rebooted, so the baseline is moved to keep the
// delta continuous.
func (t *Tracker) Record(sinceBoot int64) (int, error) {
	if !t.enabled() {
		return 0, ErrTrackingDisabled
	}
	if sinceBoot < 0 {
		return 0, &domain.ValidationError{Field: "steps_since_boot", Message: "must not be negative"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	day := t.now().Format(dayLayout)
	b := t.baseline
	switch {
	case b.Day != day:
		if t.dirty {
			finished := b
			t.previous = &finished
		}
		b = preferences.SensorBaseline{Day: day, Baseline: sinceBoot}
	case sinceBoot < b.Baseline:
		b.Baseline = sinceBoot - int64(b.LastDelta)
	}
	b.LastDelta = int(sinceBoot - b.Baseline)

	t.baseline = b
	t.dirty = true
	observability.RecordSensorReading()
	return b.LastDelta, nil
}

// Pending returns the delta waiting to be flushed, if any.
func (t *Tracker) Pending() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baseline.LastDelta, t.dirty
}

// Flush writes pending deltas as sensor records, updating each day's record
// in place when one already exists. A day that ended before its last reading
// was flushed is written first.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.previous != nil {
		if err := t.store(ctx, *t.previous); err != nil {
			return err
		}
		t.previous = nil
	}
	if !t.dirty {
		return nil
	}
	b := t.baseline
	if err := t.store(ctx, b); err != nil {
		return err
	}
	if err := t.baselines.SetSensorBaseline(b); err != nil {
		t.logger.WithError(err).Warn("persist sensor baseline failed")
	}
	t.dirty = false
	return nil
}

func (t *Tracker) store(ctx context.Context, b preferences.SensorBaseline) error {
	day, err := time.ParseInLocation(dayLayout, b.Day, t.now().Location())
	if err != nil {
		return fmt.Errorf("parse baseline day: %w", err)
	}
	window := domain.DayWindow(day)
	ts := t.now()
	if !window.Contains(ts) {
		ts = window.End.Add(-time.Millisecond)
	}

	rec, err := t.steps.SensorStepsFor(ctx, window.Start, window.End)
	if err != nil {
		return err
	}
	if rec != nil {
		rec.Steps = b.LastDelta
		rec.Timestamp = ts
		err = t.steps.UpdateStepCount(ctx, *rec)
	} else {
		rec = &domain.StepCountRecord{
			Steps:     b.LastDelta,
			Timestamp: ts,
			Source:    domain.StepSourceSensor,
		}
		rec.ID, err = t.steps.InsertStepCount(ctx, *rec)
	}
	if err != nil {
		return err
	}

	observability.RecordSensorFlush(ts)
	if t.notifier != nil {
		t.notifier.Notify(ctx, domain.ChangeEvent{
			Type:       "steps.updated",
			RecordID:   rec.ID,
			OccurredAt: t.now().UTC(),
			Record:     *rec,
		})
	}
	return nil
}

// Run flushes every interval until ctx ends, then flushes once more.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.Flush(flushCtx); err != nil {
				t.logger.WithError(err).Error("final step flush failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := t.Flush(ctx); err != nil {
				t.logger.WithError(err).Error("step flush failed")
			}
		}
	}
}
