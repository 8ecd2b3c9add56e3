// Package retention removes step records past their retention period.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/observability"
)

// DefaultRetention is how long step records are kept.
const DefaultRetention = 30 * 24 * time.Hour

// StepDeleter removes step records older than a cutoff.
type StepDeleter interface {
	DeleteStepsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Purger deletes step records older than the retention period.
type Purger struct {
	store     StepDeleter
	retention time.Duration
	now       func() time.Time
	logger    logrus.FieldLogger
}

// Option configures a Purger.
type Option func(*Purger)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(p *Purger) {
		if d > 0 {
			p.retention = d
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(p *Purger) { p.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Purger) { p.logger = logger }
}

// NewPurger constructs a Purger.
func NewPurger(store StepDeleter, opts ...Option) *Purger {
	p := &Purger{
		store:     store,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cutoff is the oldest day start still retained.
func (p *Purger) Cutoff() time.Time {
	return domain.StartOfDay(p.now().Add(-p.retention))
}

// Run performs one purge pass.
func (p *Purger) Run(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()
	n, err := p.store.DeleteStepsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge step records: %w", err)
	}
	observability.RecordPurged(n)
	p.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": n,
	}).Info("step retention pass complete")
	return n, nil
}

// Schedule registers Run on a cron scheduler. The returned scheduler is
// already started; callers stop it on shutdown.
func (p *Purger) Schedule(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := p.Run(ctx); err != nil {
			p.logger.WithError(err).Error("step retention pass failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule retention %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
