// Package memory provides an in-process record store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/persistence"
)

// Store keeps records in maps guarded by a RWMutex.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	activities map[int64]domain.ActivityRecord
	meals      map[int64]domain.MealRecord
	steps      map[int64]domain.StepCountRecord

	tables *persistence.Tables
	logger logrus.FieldLogger
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		activities: make(map[int64]domain.ActivityRecord),
		meals:      make(map[int64]domain.MealRecord),
		steps:      make(map[int64]domain.StepCountRecord),
		tables:     persistence.NewTables(),
		logger:     logrus.StandardLogger(),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func newestFirst(ts func(i int) time.Time, id func(i int) int64) func(i, j int) bool {
	return func(i, j int) bool {
		if !ts(i).Equal(ts(j)) {
			return ts(i).After(ts(j))
		}
		return id(i) > id(j)
	}
}

// ListActivities implements domain.ActivityStore.
func (s *Store) ListActivities(_ context.Context, start, end time.Time) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActivityRecord, 0)
	for _, rec := range s.activities {
		if inRange(rec.Timestamp, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, newestFirst(
		func(i int) time.Time { return out[i].Timestamp },
		func(i int) int64 { return out[i].ID },
	))
	return out, nil
}

// WatchActivities implements domain.ActivityStore.
func (s *Store) WatchActivities(ctx context.Context, start, end time.Time) (<-chan []domain.ActivityRecord, error) {
	return persistence.Watch(ctx, s.tables.Activities, func(ctx context.Context) ([]domain.ActivityRecord, error) {
		return s.ListActivities(ctx, start, end)
	}, s.logger)
}

// GetActivity returns nil when the record does not exist.
func (s *Store) GetActivity(_ context.Context, id int64) (*domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.activities[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// InsertActivity implements domain.ActivityStore.
func (s *Store) InsertActivity(_ context.Context, rec domain.ActivityRecord) (int64, error) {
	s.mu.Lock()
	rec.ID = s.id()
	s.activities[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Activities)
	return rec.ID, nil
}

// UpdateActivity implements domain.ActivityStore.
func (s *Store) UpdateActivity(_ context.Context, rec domain.ActivityRecord) error {
	s.mu.Lock()
	if _, ok := s.activities[rec.ID]; !ok {
		s.mu.Unlock()
		return domain.ErrActivityNotFound
	}
	s.activities[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Activities)
	return nil
}

// DeleteActivity implements domain.ActivityStore.
func (s *Store) DeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.activities[id]; !ok {
		s.mu.Unlock()
		return domain.ErrActivityNotFound
	}
	delete(s.activities, id)
	s.mu.Unlock()
	persistence.Bump(s.tables.Activities)
	return nil
}

// ListMeals implements domain.MealStore.
func (s *Store) ListMeals(_ context.Context, start, end time.Time) ([]domain.MealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MealRecord, 0)
	for _, rec := range s.meals {
		if inRange(rec.Timestamp, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, newestFirst(
		func(i int) time.Time { return out[i].Timestamp },
		func(i int) int64 { return out[i].ID },
	))
	return out, nil
}

// WatchMeals implements domain.MealStore.
func (s *Store) WatchMeals(ctx context.Context, start, end time.Time) (<-chan []domain.MealRecord, error) {
	return persistence.Watch(ctx, s.tables.Meals, func(ctx context.Context) ([]domain.MealRecord, error) {
		return s.ListMeals(ctx, start, end)
	}, s.logger)
}

// GetMeal returns nil when the record does not exist.
func (s *Store) GetMeal(_ context.Context, id int64) (*domain.MealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.meals[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// InsertMeal implements domain.MealStore.
func (s *Store) InsertMeal(_ context.Context, rec domain.MealRecord) (int64, error) {
	s.mu.Lock()
	rec.ID = s.id()
	s.meals[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Meals)
	return rec.ID, nil
}

// UpdateMeal implements domain.MealStore.
func (s *Store) UpdateMeal(_ context.Context, rec domain.MealRecord) error {
	s.mu.Lock()
	if _, ok := s.meals[rec.ID]; !ok {
		s.mu.Unlock()
		return domain.ErrMealNotFound
	}
	s.meals[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Meals)
	return nil
}

// DeleteMeal implements domain.MealStore.
func (s *Store) DeleteMeal(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.meals[id]; !ok {
		s.mu.Unlock()
		return domain.ErrMealNotFound
	}
	delete(s.meals, id)
	s.mu.Unlock()
	persistence.Bump(s.tables.Meals)
	return nil
}

// ListSteps implements domain.StepStore.
func (s *Store) ListSteps(_ context.Context, start, end time.Time) ([]domain.StepCountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StepCountRecord, 0)
	for _, rec := range s.steps {
		if inRange(rec.Timestamp, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, newestFirst(
		func(i int) time.Time { return out[i].Timestamp },
		func(i int) int64 { return out[i].ID },
	))
	return out, nil
}

// WatchSteps implements domain.StepStore.
func (s *Store) WatchSteps(ctx context.Context, start, end time.Time) (<-chan []domain.StepCountRecord, error) {
	return persistence.Watch(ctx, s.tables.Steps, func(ctx context.Context) ([]domain.StepCountRecord, error) {
		return s.ListSteps(ctx, start, end)
	}, s.logger)
}

// SensorStepsFor returns the newest sensor record inside the range, or nil.
func (s *Store) SensorStepsFor(ctx context.Context, start, end time.Time) (*domain.StepCountRecord, error) {
	records, _ := s.ListSteps(ctx, start, end)
	for _, rec := range records {
		if rec.Source == domain.StepSourceSensor {
			return &rec, nil
		}
	}
	return nil, nil
}

// InsertStepCount implements domain.StepStore.
func (s *Store) InsertStepCount(_ context.Context, rec domain.StepCountRecord) (int64, error) {
	s.mu.Lock()
	rec.ID = s.id()
	s.steps[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Steps)
	return rec.ID, nil
}

// UpdateStepCount implements domain.StepStore.
func (s *Store) UpdateStepCount(_ context.Context, rec domain.StepCountRecord) error {
	s.mu.Lock()
	if _, ok := s.steps[rec.ID]; !ok {
		s.mu.Unlock()
		return domain.ErrStepCountNotFound
	}
	s.steps[rec.ID] = rec
	s.mu.Unlock()
	persistence.Bump(s.tables.Steps)
	return nil
}

// DeleteStepsBefore implements domain.StepStore.
func (s *Store) DeleteStepsBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	var removed int64
	for id, rec := range s.steps {
		if rec.Timestamp.Before(before) {
			delete(s.steps, id)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		persistence.Bump(s.tables.Steps)
	}
	return removed, nil
}
