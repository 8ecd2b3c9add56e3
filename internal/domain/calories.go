package domain

import "math"

const (
	// StepCalorieFactor is the empirical kcal burned per step.
	StepCalorieFactor = 0.04
	// AssumedBodyWeightKg is used by every MET estimate; there is no per-user weight.
	AssumedBodyWeightKg = 70.0
	defaultMET          = 4.0
)

var metTable = map[ActivityKind]float64{
	ActivityWalking:  3.5,
	ActivityRunning:  8.0,
	ActivityCycling:  6.0,
	ActivityGym:      5.0,
	ActivitySwimming: 7.0,
	ActivityYoga:     2.5,
	ActivityOther:    defaultMET,
}

// MET returns the metabolic equivalent for the activity kind.
func MET(kind ActivityKind) float64 {
	if met, ok := metTable[kind]; ok {
		return met
	}
	return defaultMET
}

// ActivityCalories estimates kcal as duration * MET * 3.5 * kg / 200, floored.
func ActivityCalories(durationMin int, kind ActivityKind) int {
	return int(math.Floor(float64(durationMin) * MET(kind) * 3.5 * AssumedBodyWeightKg / 200))
}

// MealCalories scales a per-100g catalog value by the portion multiplier,
// rounding half away from zero.
func MealCalories(caloriesPer100g int, portion float64) int {
	return int(math.Round(float64(caloriesPer100g) * portion))
}

// StepCalories converts a step total into kcal burned.
func StepCalories(steps int) int {
	return int(math.Floor(float64(steps) * StepCalorieFactor))
}
