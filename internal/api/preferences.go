package api

import (
	"net/http"

	"example.com/smartfit/internal/preferences"
)

// PreferencesPatch updates any subset of the settings.
type PreferencesPatch struct {
	ThemeMode           *string `json:"theme_mode,omitempty"`
	DailyStepGoal       *int    `json:"daily_step_goal,omitempty"`
	DailyCalorieGoal    *int    `json:"daily_calorie_goal,omitempty"`
	StepTrackingEnabled *bool   `json:"step_tracking_enabled,omitempty"`
}

func (p PreferencesPatch) apply(s *preferences.Settings) {
	if p.ThemeMode != nil {
		s.ThemeMode = preferences.ThemeMode(*p.ThemeMode)
	}
	if p.DailyStepGoal != nil {
		s.DailyStepGoal = *p.DailyStepGoal
	}
	if p.DailyCalorieGoal != nil {
		s.DailyCalorieGoal = *p.DailyCalorieGoal
	}
	if p.StepTrackingEnabled != nil {
		s.StepTrackingEnabled = *p.StepTrackingEnabled
	}
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.Settings())
}

func (h *Handler) patchPreferences(w http.ResponseWriter, r *http.Request) {
	var patch PreferencesPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	settings, err := h.prefs.Update(patch.apply)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
