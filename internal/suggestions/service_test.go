package suggestions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls int
	items []Suggestion
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, limit, _ int) ([]Suggestion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.items) {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func catalog(n int) []Suggestion {
	out := make([]Suggestion, n)
	for i := range out {
		out[i] = Suggestion{ID: fmt.Sprintf("r%02d", i), Title: fmt.Sprintf("Remote %d", i)}
	}
	return out
}

func newTestService(f Fetcher, now *time.Time) *Service {
	logger, _ := test.NewNullLogger()
	return NewService(f, NewCache(DefaultCacheTTL), WithLogger(logger), WithClock(func() time.Time { return *now }))
}

func TestSuggestionsServedFromCacheWithinTTL(t *testing.T) {
	now := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{items: catalog(10)}
	svc := newTestService(fetcher, &now)

	got, source := svc.Suggestions(context.Background(), 5)
	require.Equal(t, SourceRemote, source)
	require.Len(t, got, 5)

	now = now.Add(23 * time.Hour)
	got, source = svc.Suggestions(context.Background(), 5)
	require.Equal(t, SourceCache, source)
	require.Len(t, got, 5)
	require.Equal(t, 1, fetcher.calls)

	now = now.Add(time.Hour)
	_, source = svc.Suggestions(context.Background(), 5)
	require.Equal(t, SourceRemote, source)
	require.Equal(t, 2, fetcher.calls)
}

func TestSuggestionsRefetchWhenCacheTooSmall(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{items: catalog(10)}
	svc := newTestService(fetcher, &now)

	svc.Suggestions(context.Background(), 3)
	got, source := svc.Suggestions(context.Background(), 8)
	require.Equal(t, SourceRemote, source)
	require.Len(t, got, 8)
	require.Equal(t, 2, fetcher.calls)
}

func TestSuggestionsFallBackOnFailure(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	svc := newTestService(fetcher, &now)

	got, source := svc.Suggestions(context.Background(), 3)
	require.Equal(t, SourceFallback, source)
	require.Len(t, got, 3)
	require.Equal(t, "0001", got[0].ID)

	all, _ := svc.Suggestions(context.Background(), 50)
	require.Len(t, all, len(fallback))

	// Fallback content is never cached.
	_, source = svc.Suggestions(context.Background(), 3)
	require.Equal(t, SourceFallback, source)
	require.Equal(t, 3, fetcher.calls)
}

func TestSuggestionsFallBackWithoutAPIKey(t *testing.T) {
	now := time.Now()
	svc := newTestService(NewClient(ClientConfig{}, nil), &now)

	got, source := svc.Suggestions(context.Background(), 0)
	require.Equal(t, SourceFallback, source)
	require.Len(t, got, len(fallback))
}

func TestLookupChecksCacheThenFallback(t *testing.T) {
	now := time.Now()
	svc := newTestService(&stubFetcher{items: catalog(4)}, &now)
	svc.Suggestions(context.Background(), 4)

	remote, ok := svc.Lookup("r02")
	require.True(t, ok)
	require.Equal(t, "Remote 2", remote.Title)

	builtin, ok := svc.Lookup("0009")
	require.True(t, ok)
	require.Equal(t, "Assisted Chest Dip (Kneeling)", builtin.Title)

	_, ok = svc.Lookup("nope")
	require.False(t, ok)
}

func TestCacheValidity(t *testing.T) {
	c := NewCache(0)
	now := time.Now()
	require.False(t, c.IsValid(now))

	c.Store(catalog(2), now)
	require.True(t, c.IsValid(now.Add(DefaultCacheTTL-time.Nanosecond)))
	require.False(t, c.IsValid(now.Add(DefaultCacheTTL)))

	c.Clear()
	require.False(t, c.IsValid(now))
}
