package domain

import (
	"strings"
	"time"
)

// ActivityKind enumerates the activity types with a known MET value.
type ActivityKind string

const (
	ActivityWalking  ActivityKind = "walking"
	ActivityRunning  ActivityKind = "running"
	ActivityCycling  ActivityKind = "cycling"
	ActivityGym      ActivityKind = "gym"
	ActivitySwimming ActivityKind = "swimming"
	ActivityYoga     ActivityKind = "yoga"
	ActivityOther    ActivityKind = "other"
)

// KnownActivityKinds lists every recognised kind, excluding ActivityOther.
var KnownActivityKinds = []ActivityKind{
	ActivityWalking,
	ActivityRunning,
	ActivityCycling,
	ActivityGym,
	ActivitySwimming,
	ActivityYoga,
}

// ActivityType is a closed activity kind plus the user label carried by ActivityOther.
type ActivityType struct {
	Kind  ActivityKind
	Label string
}

// ParseActivityType maps a free-text name onto the closed set.
// Unrecognised names become ActivityOther with the name as label.
func ParseActivityType(name string) ActivityType {
	trimmed := strings.TrimSpace(name)
	normalized := ActivityKind(strings.ToLower(trimmed))
	for _, kind := range KnownActivityKinds {
		if normalized == kind {
			return ActivityType{Kind: kind}
		}
	}
	if normalized == ActivityOther {
		return ActivityType{Kind: ActivityOther}
	}
	return ActivityType{Kind: ActivityOther, Label: trimmed}
}

// Recognized reports whether the type has its own MET value.
func (t ActivityType) Recognized() bool {
	return t.Kind != ActivityOther && t.Kind != ""
}

// Name is the display and storage name: the kind, or the label for custom activities.
func (t ActivityType) Name() string {
	if t.Kind == ActivityOther && t.Label != "" {
		return t.Label
	}
	return string(t.Kind)
}

// ActivityRecord is a logged workout.
type ActivityRecord struct {
	ID          int64
	Type        ActivityType
	DurationMin int
	Calories    int
	Steps       int
	Timestamp   time.Time
	Notes       string
}

// MealCategory is the closed set of meal slots.
type MealCategory string

const (
	MealBreakfast MealCategory = "breakfast"
	MealLunch     MealCategory = "lunch"
	MealDinner    MealCategory = "dinner"
	MealSnack     MealCategory = "snack"
)

// ParseMealCategory accepts any casing of the four categories.
func ParseMealCategory(value string) (MealCategory, bool) {
	switch c := MealCategory(strings.ToLower(strings.TrimSpace(value))); c {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return c, true
	}
	return "", false
}

// MealRecord is a logged meal.
type MealRecord struct {
	ID        int64
	Name      string
	Calories  int
	Category  MealCategory
	Timestamp time.Time
	Portion   float64
	Notes     string
}

// StepSource tags where a step count came from.
type StepSource string

const (
	StepSourceSensor StepSource = "sensor"
	StepSourceManual StepSource = "manual"
)

// StepCountRecord is a step total attributed to a point in time.
// Today's sensor record is updated in place as the daily delta grows.
type StepCountRecord struct {
	ID        int64
	Steps     int
	Timestamp time.Time
	Source    StepSource
}

// ToMillis converts a timestamp to the epoch milliseconds used by the stores.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts stored epoch milliseconds back to local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
