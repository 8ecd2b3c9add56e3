package api

import (
	"net/http"
	"time"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/persistence"
)

// ActivityRequest is the payload for creating or replacing an activity.
type ActivityRequest struct {
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Calories    *int      `json:"calories,omitempty"`
	Steps       int       `json:"steps"`
	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes"`
}

func (r ActivityRequest) input() domain.ActivityInput {
	return domain.ActivityInput{
		Type:        r.Type,
		DurationMin: r.DurationMin,
		Calories:    r.Calories,
		Steps:       r.Steps,
		Timestamp:   r.Timestamp,
		Notes:       r.Notes,
	}
}

// ActivityView is the API representation of an activity.
type ActivityView struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Custom      bool      `json:"custom"`
	DurationMin int       `json:"duration_min"`
	Calories    int       `json:"calories"`
	Steps       int       `json:"steps"`
	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes,omitempty"`
}

func toActivityView(rec domain.ActivityRecord) ActivityView {
	return ActivityView{
		ID:          rec.ID,
		Type:        rec.Type.Name(),
		Custom:      !rec.Type.Recognized(),
		DurationMin: rec.DurationMin,
		Calories:    rec.Calories,
		Steps:       rec.Steps,
		Timestamp:   rec.Timestamp,
		Notes:       rec.Notes,
	}
}

// MealRequest is the payload for creating or replacing a meal. Food names a
// catalog item whose calories are scaled by Portion.
type MealRequest struct {
	Name      string    `json:"name"`
	Food      string    `json:"food"`
	Category  string    `json:"category"`
	Portion   *float64  `json:"portion,omitempty"`
	Calories  *int      `json:"calories,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes"`
}

func (r MealRequest) input() domain.MealInput {
	return domain.MealInput{
		Name:      r.Name,
		Food:      r.Food,
		Category:  r.Category,
		Portion:   r.Portion,
		Calories:  r.Calories,
		Timestamp: r.Timestamp,
		Notes:     r.Notes,
	}
}

// MealView is the API representation of a meal.
type MealView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Calories  int       `json:"calories"`
	Portion   float64   `json:"portion"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

func toMealView(rec domain.MealRecord) MealView {
	return MealView{
		ID:        rec.ID,
		Name:      rec.Name,
		Category:  string(rec.Category),
		Calories:  rec.Calories,
		Portion:   rec.Portion,
		Timestamp: rec.Timestamp,
		Notes:     rec.Notes,
	}
}

// StepsRequest is a manual step entry.
type StepsRequest struct {
	Steps     int       `json:"steps"`
	Timestamp time.Time `json:"timestamp"`
}

// SensorReadingRequest is one cumulative since-boot reading.
type SensorReadingRequest struct {
	StepsSinceBoot int64 `json:"steps_since_boot"`
}

// StepsView is the API representation of a step record.
type StepsView struct {
	ID        int64     `json:"id"`
	Steps     int       `json:"steps"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func toStepsView(rec domain.StepCountRecord) StepsView {
	return StepsView{ID: rec.ID, Steps: rec.Steps, Source: string(rec.Source), Timestamp: rec.Timestamp}
}

// DayGroup is one calendar day of a grouped listing.
type DayGroup[T any] struct {
	Day   string `json:"day"`
	Items []T    `json:"items"`
}

// ListResponse packages list results. Days is set when ?group=day is given.
type ListResponse[T any] struct {
	Items      []T           `json:"items"`
	Days       []DayGroup[T] `json:"days,omitempty"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// respondList paginates a newest-first list and optionally groups the page by day.
func respondList[R, V any](w http.ResponseWriter, r *http.Request, records []R, key func(R) domain.Cursor, view func(R) V) {
	after, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	page, next := persistence.Paginate(records, key, after, pageLimit(r))
	resp := ListResponse[V]{
		Items:      make([]V, 0, len(page)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, rec := range page {
		resp.Items = append(resp.Items, view(rec))
	}

	if r.URL.Query().Get("group") == "day" {
		for _, bucket := range domain.BucketByDay(page, func(rec R) time.Time { return key(rec).Timestamp }) {
			group := DayGroup[V]{Day: bucket.Day.Format("2006-01-02"), Items: make([]V, 0, len(bucket.Items))}
			for _, rec := range bucket.Items {
				group.Items = append(group.Items, view(rec))
			}
			resp.Days = append(resp.Days, group)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func activityKey(rec domain.ActivityRecord) domain.Cursor {
	return domain.Cursor{Timestamp: rec.Timestamp, ID: rec.ID}
}

func mealKey(rec domain.MealRecord) domain.Cursor {
	return domain.Cursor{Timestamp: rec.Timestamp, ID: rec.ID}
}

func stepsKey(rec domain.StepCountRecord) domain.Cursor {
	return domain.Cursor{Timestamp: rec.Timestamp, ID: rec.ID}
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	window, err := h.listWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	records, err := h.records.ListActivities(r.Context(), window, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondList(w, r, records, activityKey, toActivityView)
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.records.LogActivity(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(rec))
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.records.GetActivity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*rec))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.records.UpdateActivity(r.Context(), id, req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(rec))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.records.DeleteActivity(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMeals(w http.ResponseWriter, r *http.Request) {
	window, err := h.listWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	records, err := h.records.ListMeals(r.Context(), window, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondList(w, r, records, mealKey, toMealView)
}

func (h *Handler) createMeal(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.records.LogMeal(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMealView(rec))
}

func (h *Handler) getMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.records.GetMeal(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealView(*rec))
}

func (h *Handler) updateMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MealRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.records.UpdateMeal(r.Context(), id, req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealView(rec))
}

func (h *Handler) deleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.records.DeleteMeal(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFoods(w http.ResponseWriter, r *http.Request) {
	var category domain.MealCategory
	if raw := r.URL.Query().Get("category"); raw != "" {
		parsed, ok := domain.ParseMealCategory(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_failed", "category: must be breakfast, lunch, dinner or snack")
			return
		}
		category = parsed
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": domain.Foods(category)})
}

func (h *Handler) listSteps(w http.ResponseWriter, r *http.Request) {
	window, err := h.listWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	records, err := h.records.ListSteps(r.Context(), window)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respondList(w, r, records, stepsKey, toStepsView)
}

func (h *Handler) createSteps(w http.ResponseWriter, r *http.Request) {
	var req StepsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.records.LogManualSteps(r.Context(), req.Steps, req.Timestamp)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStepsView(rec))
}

func (h *Handler) recordSensor(w http.ResponseWriter, r *http.Request) {
	if h.sensor == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "step sensor ingestion not configured")
		return
	}
	var req SensorReadingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	delta, err := h.sensor.Record(req.StepsSinceBoot)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"today_steps": delta})
}
