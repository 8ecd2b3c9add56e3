package domain

// Summary is the aggregate for one window. It is comparable, so == is the
// bit-identity check used to suppress duplicate emissions.
type Summary struct {
	TotalSteps       int
	CaloriesBurned   int
	CaloriesConsumed int
	// NetCalories is consumed minus burned: positive is a surplus, negative a deficit.
	NetCalories int
}

// Summarize filters each source to the window and derives the totals.
func Summarize(steps []StepCountRecord, activities []ActivityRecord, meals []MealRecord, window Window) Summary {
	var (
		totalSteps       int
		activityCalories int
		consumed         int
	)

	for _, s := range steps {
		if window.Contains(s.Timestamp) {
			totalSteps += s.Steps
		}
	}
	for _, a := range activities {
		if window.Contains(a.Timestamp) {
			totalSteps += a.Steps
			activityCalories += a.Calories
		}
	}
	for _, m := range meals {
		if window.Contains(m.Timestamp) {
			consumed += m.Calories
		}
	}

	burned := activityCalories + StepCalories(totalSteps)
	return Summary{
		TotalSteps:       totalSteps,
		CaloriesBurned:   burned,
		CaloriesConsumed: consumed,
		NetCalories:      consumed - burned,
	}
}

// GoalProgress expresses a summary against the user's daily goals.
type GoalProgress struct {
	StepGoal        int
	StepRatio       float64
	CalorieGoal     int
	CalorieRatio    float64
	StepGoalReached bool
}

// Progress compares a summary with daily step and calorie goals. Non-positive
// goals yield zero ratios.
func Progress(s Summary, stepGoal, calorieGoal int) GoalProgress {
	p := GoalProgress{StepGoal: stepGoal, CalorieGoal: calorieGoal}
	if stepGoal > 0 {
		p.StepRatio = float64(s.TotalSteps) / float64(stepGoal)
		p.StepGoalReached = s.TotalSteps >= stepGoal
	}
	if calorieGoal > 0 {
		p.CalorieRatio = float64(s.CaloriesConsumed) / float64(calorieGoal)
	}
	return p
}
