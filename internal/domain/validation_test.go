package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	require.Equal(t, field, verr.Field)
}

func TestValidationBoundaries(t *testing.T) {
	require.NoError(t, ValidateDuration(1))
	require.NoError(t, ValidateDuration(1440))
	requireField(t, ValidateDuration(0), "duration_min")
	requireField(t, ValidateDuration(1441), "duration_min")

	require.NoError(t, ValidateCalories(0))
	require.NoError(t, ValidateCalories(10000))
	requireField(t, ValidateCalories(-1), "calories")
	requireField(t, ValidateCalories(10001), "calories")

	require.NoError(t, ValidatePortion(0.1))
	require.NoError(t, ValidatePortion(10.0))
	requireField(t, ValidatePortion(0.09), "portion")
	requireField(t, ValidatePortion(10.01), "portion")

	require.NoError(t, ValidateText("notes", strings.Repeat("é", 500)))
	requireField(t, ValidateText("notes", strings.Repeat("a", 501)), "notes")
}

func TestValidateActivity(t *testing.T) {
	rec := ActivityRecord{Type: ActivityType{Kind: ActivityRunning}, DurationMin: 30, Calories: 294}
	require.NoError(t, ValidateActivity(rec))

	rec.Type = ActivityType{Kind: ActivityOther}
	requireField(t, ValidateActivity(rec), "type")

	rec.Type = ParseActivityType("Hiking")
	require.NoError(t, ValidateActivity(rec))

	rec.Steps = -1
	requireField(t, ValidateActivity(rec), "steps")
}

func TestValidateMeal(t *testing.T) {
	rec := MealRecord{Name: "Apple", Calories: 95, Category: MealSnack, Portion: 1}
	require.NoError(t, ValidateMeal(rec))

	rec.Category = "brunch"
	requireField(t, ValidateMeal(rec), "category")

	rec.Category = MealSnack
	rec.Name = "   "
	requireField(t, ValidateMeal(rec), "name")
}

func TestParseActivityType(t *testing.T) {
	require.Equal(t, ActivityType{Kind: ActivityRunning}, ParseActivityType(" Running "))
	require.Equal(t, ActivityType{Kind: ActivityOther, Label: "Hiking"}, ParseActivityType("Hiking"))
	require.Equal(t, "Hiking", ParseActivityType("Hiking").Name())
	require.Equal(t, "yoga", ParseActivityType("YOGA").Name())
	require.False(t, ParseActivityType("Hiking").Recognized())
}

func TestParseMealCategory(t *testing.T) {
	c, ok := ParseMealCategory("Breakfast")
	require.True(t, ok)
	require.Equal(t, MealBreakfast, c)

	_, ok = ParseMealCategory("supper")
	require.False(t, ok)
}
