// Package aggregate keeps a today/this-week summary current as records change.
package aggregate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/observability"
)

// Sources are the live record sequences the aggregator combines.
type Sources interface {
	WatchSteps(ctx context.Context, start, end time.Time) (<-chan []domain.StepCountRecord, error)
	WatchActivities(ctx context.Context, start, end time.Time) (<-chan []domain.ActivityRecord, error)
	WatchMeals(ctx context.Context, start, end time.Time) (<-chan []domain.MealRecord, error)
}

// Update is one emitted summary together with the window it covers.
type Update struct {
	Period  domain.Period
	Window  domain.Window
	Summary domain.Summary
}

// Aggregator builds summary subscriptions.
type Aggregator struct {
	sources Sources
	now     func() time.Time
	logger  logrus.FieldLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock used to place windows.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// New constructs an Aggregator over the given sources.
func New(sources Sources, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subscribe starts a summary stream for the initial period. Values on periods
// switch the window. A summary is emitted once every source has delivered, and
// again whenever a source or the period changes and the result differs from the
// previous emission. The returned channel closes when ctx ends or a source
// stream terminates.
func (a *Aggregator) Subscribe(ctx context.Context, initial domain.Period, periods <-chan domain.Period) (<-chan Update, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Every later window starts at or after this week's start.
	from := domain.WindowFor(domain.PeriodThisWeek, a.now()).Start

	steps, err := a.sources.WatchSteps(ctx, from, domain.Unbounded)
	if err != nil {
		cancel()
		return nil, err
	}
	activities, err := a.sources.WatchActivities(ctx, from, domain.Unbounded)
	if err != nil {
		cancel()
		return nil, err
	}
	meals, err := a.sources.WatchMeals(ctx, from, domain.Unbounded)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan Update, 1)
	go func() {
		defer cancel()
		defer close(out)
		observability.SubscriptionStarted()
		defer observability.SubscriptionEnded()
		a.loop(ctx, initial, periods, steps, activities, meals, out)
		a.logger.WithField("period", initial).Debug("summary subscription closed")
	}()
	return out, nil
}

func (a *Aggregator) loop(
	ctx context.Context,
	period domain.Period,
	periods <-chan domain.Period,
	stepsCh <-chan []domain.StepCountRecord,
	activitiesCh <-chan []domain.ActivityRecord,
	mealsCh <-chan []domain.MealRecord,
	out chan<- Update,
) {
	var (
		steps      []domain.StepCountRecord
		activities []domain.ActivityRecord
		meals      []domain.MealRecord

		haveSteps, haveActivities, haveMeals bool

		last    domain.Summary
		emitted bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-stepsCh:
			if !ok {
				return
			}
			steps, haveSteps = v, true
		case v, ok := <-activitiesCh:
			if !ok {
				return
			}
			activities, haveActivities = v, true
		case v, ok := <-mealsCh:
			if !ok {
				return
			}
			meals, haveMeals = v, true
		case p, ok := <-periods:
			if !ok {
				periods = nil
				continue
			}
			period = p
		}

		if !haveSteps || !haveActivities || !haveMeals {
			continue
		}

		window := domain.WindowFor(period, a.now())
		summary := domain.Summarize(steps, activities, meals, window)
		if emitted && summary == last {
			observability.RecordAggregation(false)
			continue
		}
		observability.RecordAggregation(true)

		select {
		case out <- Update{Period: period, Window: window, Summary: summary}:
			last, emitted = summary, true
		case <-ctx.Done():
			return
		}
	}
}
