package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input limits enforced before records reach the store.
const (
	MaxDurationMin = 1440
	MinCalories    = 0
	MaxCalories    = 10000
	MinPortion     = 0.1
	MaxPortion     = 10.0
	MaxTextLength  = 500
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateDuration accepts 1..1440 minutes.
func ValidateDuration(minutes int) error {
	if minutes <= 0 || minutes > MaxDurationMin {
		return invalid("duration_min", "must be between 1 and %d minutes", MaxDurationMin)
	}
	return nil
}

// ValidateCalories accepts 0..10000 kcal.
func ValidateCalories(calories int) error {
	if calories < MinCalories || calories > MaxCalories {
		return invalid("calories", "must be between %d and %d", MinCalories, MaxCalories)
	}
	return nil
}

// ValidatePortion accepts multipliers in [0.1, 10.0].
func ValidatePortion(portion float64) error {
	if portion < MinPortion || portion > MaxPortion {
		return invalid("portion", "must be between %.1f and %.1f", MinPortion, MaxPortion)
	}
	return nil
}

// ValidateText bounds free text to MaxTextLength characters.
func ValidateText(field, value string) error {
	if utf8.RuneCountInString(value) > MaxTextLength {
		return invalid(field, "must be at most %d characters", MaxTextLength)
	}
	return nil
}

// ValidateSteps rejects negative counts.
func ValidateSteps(steps int) error {
	if steps < 0 {
		return invalid("steps", "must not be negative")
	}
	return nil
}

// ValidateActivity checks a record before it is persisted.
func ValidateActivity(rec ActivityRecord) error {
	if rec.Type.Kind == "" {
		return invalid("type", "is required")
	}
	if rec.Type.Kind == ActivityOther && strings.TrimSpace(rec.Type.Label) == "" {
		return invalid("type", "custom activities need a name")
	}
	if err := ValidateText("type", rec.Type.Label); err != nil {
		return err
	}
	if err := ValidateDuration(rec.DurationMin); err != nil {
		return err
	}
	if err := ValidateCalories(rec.Calories); err != nil {
		return err
	}
	if err := ValidateSteps(rec.Steps); err != nil {
		return err
	}
	return ValidateText("notes", rec.Notes)
}

// ValidateMeal checks a record before it is persisted.
func ValidateMeal(rec MealRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return invalid("name", "is required")
	}
	if err := ValidateText("name", rec.Name); err != nil {
		return err
	}
	if _, ok := ParseMealCategory(string(rec.Category)); !ok {
		return invalid("category", "must be one of breakfast, lunch, dinner, snack")
	}
	if err := ValidateCalories(rec.Calories); err != nil {
		return err
	}
	if err := ValidatePortion(rec.Portion); err != nil {
		return err
	}
	return ValidateText("notes", rec.Notes)
}

// ValidateStepCount checks a record before it is persisted.
func ValidateStepCount(rec StepCountRecord) error {
	if err := ValidateSteps(rec.Steps); err != nil {
		return err
	}
	switch rec.Source {
	case StepSourceSensor, StepSourceManual:
		return nil
	}
	return invalid("source", "must be sensor or manual")
}
