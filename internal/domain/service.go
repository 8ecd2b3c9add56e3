// Package domain defines the records, formulas and workflows of the SmartFit service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrMealNotFound is returned when a meal cannot be located.
	ErrMealNotFound = errors.New("meal not found")
	// ErrStepCountNotFound is returned when a step record cannot be located.
	ErrStepCountNotFound = errors.New("step count not found")
	// ErrSaveFailed wraps persistence failures that callers surface generically.
	ErrSaveFailed = errors.New("failed to save")
)

// ActivityStore captures activity persistence. Lists are ordered newest first.
type ActivityStore interface {
	ListActivities(ctx context.Context, start, end time.Time) ([]ActivityRecord, error)
	WatchActivities(ctx context.Context, start, end time.Time) (<-chan []ActivityRecord, error)
	GetActivity(ctx context.Context, id int64) (*ActivityRecord, error)
	InsertActivity(ctx context.Context, rec ActivityRecord) (int64, error)
	UpdateActivity(ctx context.Context, rec ActivityRecord) error
	DeleteActivity(ctx context.Context, id int64) error
}

// MealStore captures meal persistence. Lists are ordered newest first.
type MealStore interface {
	ListMeals(ctx context.Context, start, end time.Time) ([]MealRecord, error)
	WatchMeals(ctx context.Context, start, end time.Time) (<-chan []MealRecord, error)
	GetMeal(ctx context.Context, id int64) (*MealRecord, error)
	InsertMeal(ctx context.Context, rec MealRecord) (int64, error)
	UpdateMeal(ctx context.Context, rec MealRecord) error
	DeleteMeal(ctx context.Context, id int64) error
}

// StepStore captures step-count persistence. Lists are ordered newest first.
type StepStore interface {
	ListSteps(ctx context.Context, start, end time.Time) ([]StepCountRecord, error)
	WatchSteps(ctx context.Context, start, end time.Time) (<-chan []StepCountRecord, error)
	SensorStepsFor(ctx context.Context, start, end time.Time) (*StepCountRecord, error)
	InsertStepCount(ctx context.Context, rec StepCountRecord) (int64, error)
	UpdateStepCount(ctx context.Context, rec StepCountRecord) error
	DeleteStepsBefore(ctx context.Context, before time.Time) (int64, error)
}

// RecordStore is the full persistence surface.
type RecordStore interface {
	ActivityStore
	MealStore
	StepStore
}

// ChangeEvent describes a committed write.
type ChangeEvent struct {
	Type       string
	RecordID   int64
	OccurredAt time.Time
	Record     any
}

// ChangeNotifier receives committed writes. Implementations must not block the caller for long.
type ChangeNotifier interface {
	Notify(ctx context.Context, event ChangeEvent)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, ChangeEvent) {}

// Service orchestrates record workflows.
type Service struct {
	store    RecordStore
	notifier ChangeNotifier
	now      func() time.Time
	logger   logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes change events after each committed write.
func WithNotifier(n ChangeNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service.
func NewService(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: noopNotifier{},
		now:      time.Now,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now exposes the service clock so collaborators share one notion of time.
func (s *Service) Now() time.Time {
	return s.now()
}

// ActivityInput captures an activity as entered by the user.
// A nil Calories means the value is derived from the MET table.
type ActivityInput struct {
	Type        string
	DurationMin int
	Calories    *int
	Steps       int
	Timestamp   time.Time
	Notes       string
}

// MealInput captures a meal as entered by the user. When Food names a catalog
// item the name and calories derive from it; Calories still overrides.
// A nil Portion means one serving.
type MealInput struct {
	Name      string
	Food      string
	Category  string
	Portion   *float64
	Calories  *int
	Timestamp time.Time
	Notes     string
}

func (s *Service) buildActivity(in ActivityInput) (ActivityRecord, error) {
	if strings.TrimSpace(in.Type) == "" {
		return ActivityRecord{}, invalid("type", "is required")
	}
	rec := ActivityRecord{
		Type:        ParseActivityType(in.Type),
		DurationMin: in.DurationMin,
		Steps:       in.Steps,
		Timestamp:   in.Timestamp,
		Notes:       in.Notes,
	}
	if err := ValidateDuration(rec.DurationMin); err != nil {
		return ActivityRecord{}, err
	}
	switch {
	case in.Calories != nil:
		rec.Calories = *in.Calories
	case rec.Type.Recognized():
		rec.Calories = ActivityCalories(rec.DurationMin, rec.Type.Kind)
	default:
		return ActivityRecord{}, invalid("calories", "are required for custom activities")
	}
	if err := ValidateActivity(rec); err != nil {
		return ActivityRecord{}, err
	}
	return rec, nil
}

// LogActivity validates and stores a new activity.
func (s *Service) LogActivity(ctx context.Context, in ActivityInput) (ActivityRecord, error) {
	rec, err := s.buildActivity(in)
	if err != nil {
		return ActivityRecord{}, err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	id, err := s.store.InsertActivity(ctx, rec)
	if err != nil {
		s.logger.WithError(err).Error("insert activity failed")
		return ActivityRecord{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	rec.ID = id
	s.notify(ctx, "activity.logged", id, rec)
	return rec, nil
}

// UpdateActivity replaces an existing activity. A zero timestamp keeps the stored one.
func (s *Service) UpdateActivity(ctx context.Context, id int64, in ActivityInput) (ActivityRecord, error) {
	existing, err := s.GetActivity(ctx, id)
	if err != nil {
		return ActivityRecord{}, err
	}
	rec, err := s.buildActivity(in)
	if err != nil {
		return ActivityRecord{}, err
	}
	rec.ID = id
	if rec.Timestamp.IsZero() {
		rec.Timestamp = existing.Timestamp
	}

	if err := s.store.UpdateActivity(ctx, rec); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return ActivityRecord{}, err
		}
		s.logger.WithError(err).WithField("activity_id", id).Error("update activity failed")
		return ActivityRecord{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	s.notify(ctx, "activity.updated", id, rec)
	return rec, nil
}

// DeleteActivity removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return err
		}
		s.logger.WithError(err).WithField("activity_id", id).Error("delete activity failed")
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	s.notify(ctx, "activity.deleted", id, nil)
	return nil
}

// GetActivity fetches by ID.
func (s *Service) GetActivity(ctx context.Context, id int64) (*ActivityRecord, error) {
	rec, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrActivityNotFound
	}
	return rec, nil
}

// ListActivities returns the window's activities whose type or notes contain query.
func (s *Service) ListActivities(ctx context.Context, window Window, query string) ([]ActivityRecord, error) {
	records, err := s.store.ListActivities(ctx, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records, nil
	}
	out := make([]ActivityRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Type.Name()), needle) || strings.Contains(strings.ToLower(rec.Notes), needle) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Service) buildMeal(in MealInput) (MealRecord, error) {
	category, ok := ParseMealCategory(in.Category)
	if !ok {
		return MealRecord{}, invalid("category", "must be one of breakfast, lunch, dinner, snack")
	}
	portion := 1.0
	if in.Portion != nil {
		portion = *in.Portion
	}
	if err := ValidatePortion(portion); err != nil {
		return MealRecord{}, err
	}

	rec := MealRecord{
		Name:      strings.TrimSpace(in.Name),
		Category:  category,
		Portion:   portion,
		Timestamp: in.Timestamp,
		Notes:     in.Notes,
	}

	switch {
	case strings.TrimSpace(in.Food) != "":
		item, found := LookupFood(in.Food)
		if !found {
			return MealRecord{}, invalid("food", "unknown catalog item %q", in.Food)
		}
		rec.Name = item.Name
		rec.Calories = MealCalories(item.CaloriesPer100g, portion)
		if in.Calories != nil {
			rec.Calories = *in.Calories
		}
	case in.Calories != nil:
		rec.Calories = *in.Calories
	default:
		return MealRecord{}, invalid("calories", "are required for custom foods")
	}

	if err := ValidateMeal(rec); err != nil {
		return MealRecord{}, err
	}
	return rec, nil
}

// LogMeal validates and stores a new meal.
func (s *Service) LogMeal(ctx context.Context, in MealInput) (MealRecord, error) {
	rec, err := s.buildMeal(in)
	if err != nil {
		return MealRecord{}, err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	id, err := s.store.InsertMeal(ctx, rec)
	if err != nil {
		s.logger.WithError(err).Error("insert meal failed")
		return MealRecord{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	rec.ID = id
	s.notify(ctx, "meal.logged", id, rec)
	return rec, nil
}

// UpdateMeal replaces an existing meal. A zero timestamp keeps the stored one.
func (s *Service) UpdateMeal(ctx context.Context, id int64, in MealInput) (MealRecord, error) {
	existing, err := s.GetMeal(ctx, id)
	if err != nil {
		return MealRecord{}, err
	}
	rec, err := s.buildMeal(in)
	if err != nil {
		return MealRecord{}, err
	}
	rec.ID = id
	if rec.Timestamp.IsZero() {
		rec.Timestamp = existing.Timestamp
	}

	if err := s.store.UpdateMeal(ctx, rec); err != nil {
		if errors.Is(err, ErrMealNotFound) {
			return MealRecord{}, err
		}
		s.logger.WithError(err).WithField("meal_id", id).Error("update meal failed")
		return MealRecord{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	s.notify(ctx, "meal.updated", id, rec)
	return rec, nil
}

// DeleteMeal removes a meal.
func (s *Service) DeleteMeal(ctx context.Context, id int64) error {
	if err := s.store.DeleteMeal(ctx, id); err != nil {
		if errors.Is(err, ErrMealNotFound) {
			return err
		}
		s.logger.WithError(err).WithField("meal_id", id).Error("delete meal failed")
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	s.notify(ctx, "meal.deleted", id, nil)
	return nil
}

// GetMeal fetches by ID.
func (s *Service) GetMeal(ctx context.Context, id int64) (*MealRecord, error) {
	rec, err := s.store.GetMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrMealNotFound
	}
	return rec, nil
}

// ListMeals returns the window's meals whose name or notes contain query.
func (s *Service) ListMeals(ctx context.Context, window Window, query string) ([]MealRecord, error) {
	records, err := s.store.ListMeals(ctx, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records, nil
	}
	out := make([]MealRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Name), needle) || strings.Contains(strings.ToLower(rec.Notes), needle) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// LogManualSteps stores a user-entered step count.
func (s *Service) LogManualSteps(ctx context.Context, steps int, at time.Time) (StepCountRecord, error) {
	if at.IsZero() {
		at = s.now()
	}
	rec := StepCountRecord{Steps: steps, Timestamp: at, Source: StepSourceManual}
	if err := ValidateStepCount(rec); err != nil {
		return StepCountRecord{}, err
	}
	id, err := s.store.InsertStepCount(ctx, rec)
	if err != nil {
		s.logger.WithError(err).Error("insert step count failed")
		return StepCountRecord{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	rec.ID = id
	s.notify(ctx, "steps.updated", id, rec)
	return rec, nil
}

// ListSteps returns the step records inside the window.
func (s *Service) ListSteps(ctx context.Context, window Window) ([]StepCountRecord, error) {
	return s.store.ListSteps(ctx, window.Start, window.End)
}

// Summary computes a one-shot aggregate for the period at the current time.
func (s *Service) Summary(ctx context.Context, period Period) (Summary, Window, error) {
	window := WindowFor(period, s.now())

	steps, err := s.store.ListSteps(ctx, window.Start, window.End)
	if err != nil {
		return Summary{}, window, err
	}
	activities, err := s.store.ListActivities(ctx, window.Start, window.End)
	if err != nil {
		return Summary{}, window, err
	}
	meals, err := s.store.ListMeals(ctx, window.Start, window.End)
	if err != nil {
		return Summary{}, window, err
	}
	return Summarize(steps, activities, meals, window), window, nil
}

func (s *Service) notify(ctx context.Context, eventType string, id int64, record any) {
	s.notifier.Notify(ctx, ChangeEvent{
		Type:       eventType,
		RecordID:   id,
		OccurredAt: s.now().UTC(),
		Record:     record,
	})
}

// Cursor models the pagination token over newest-first lists.
type Cursor struct {
	Timestamp time.Time
	ID        int64
}
