package suggestions

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/observability"
)

// DefaultLimit is used when callers ask for zero or fewer suggestions.
const DefaultLimit = 10

// Source tells callers where a result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Fetcher loads suggestions from a remote catalog.
type Fetcher interface {
	Fetch(ctx context.Context, limit, offset int) ([]Suggestion, error)
}

// Service serves suggestions from the cache, the catalog, or the fallback list.
type Service struct {
	fetcher Fetcher
	cache   *Cache
	now     func() time.Time
	logger  logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service. A nil cache gets a fresh one.
func NewService(fetcher Fetcher, cache *Cache, opts ...Option) *Service {
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}
	s := &Service{
		fetcher: fetcher,
		cache:   cache,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggestions never fails: catalog errors and empty responses yield the
// fallback list truncated to limit, which is not cached.
func (s *Service) Suggestions(ctx context.Context, limit int) ([]Suggestion, Source) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if cached, ok := s.cache.Get(s.now(), limit); ok {
		observability.RecordSuggestionSource(string(SourceCache))
		return cached, SourceCache
	}

	fetched, err := s.fetcher.Fetch(ctx, limit, 0)
	if err == nil && len(fetched) > 0 {
		s.cache.Store(fetched, s.now())
		observability.RecordSuggestionSource(string(SourceRemote))
		if len(fetched) > limit {
			fetched = fetched[:limit]
		}
		return fetched, SourceRemote
	}

	entry := s.logger.WithField("limit", limit)
	if err != nil {
		entry.WithError(err).Warn("fetch suggestions failed, serving fallback")
	} else {
		entry.Warn("exercise catalog returned no suggestions, serving fallback")
	}
	observability.RecordSuggestionSource(string(SourceFallback))
	return Fallback(limit), SourceFallback
}

// Lookup finds a suggestion by ID in the cache, then in the fallback list.
func (s *Service) Lookup(id string) (Suggestion, bool) {
	if found, ok := s.cache.Lookup(id); ok {
		return found, true
	}
	for _, f := range fallback {
		if f.ID == id {
			return f, true
		}
	}
	return Suggestion{}, false
}
