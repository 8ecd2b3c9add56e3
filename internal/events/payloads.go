// Package events publishes record-change notifications to Kafka.
package events

import (
	"time"

	"example.com/smartfit/internal/domain"
)

// Envelope is the JSON body of every published event.
type Envelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	RecordID   int64     `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     any       `json:"record,omitempty"`
}

// Activity is the published form of an activity record.
type Activity struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Custom      bool      `json:"custom"`
	DurationMin int       `json:"duration_min"`
	Calories    int       `json:"calories"`
	Steps       int       `json:"steps"`
	Timestamp   time.Time `json:"timestamp"`
	Notes       string    `json:"notes,omitempty"`
}

// Meal is the published form of a meal record.
type Meal struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Calories  int       `json:"calories"`
	Portion   float64   `json:"portion"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// Steps is the published form of a step-count record.
type Steps struct {
	ID        int64     `json:"id"`
	Steps     int       `json:"steps"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func payloadFor(record any) any {
	switch r := record.(type) {
	case domain.ActivityRecord:
		return Activity{
			ID:          r.ID,
			Type:        r.Type.Name(),
			Custom:      !r.Type.Recognized(),
			DurationMin: r.DurationMin,
			Calories:    r.Calories,
			Steps:       r.Steps,
			Timestamp:   r.Timestamp.UTC(),
			Notes:       r.Notes,
		}
	case domain.MealRecord:
		return Meal{
			ID:        r.ID,
			Name:      r.Name,
			Category:  string(r.Category),
			Calories:  r.Calories,
			Portion:   r.Portion,
			Timestamp: r.Timestamp.UTC(),
			Notes:     r.Notes,
		}
	case domain.StepCountRecord:
		return Steps{
			ID:        r.ID,
			Steps:     r.Steps,
			Source:    string(r.Source),
			Timestamp: r.Timestamp.UTC(),
		}
	}
	return nil
}

// recordType names the kind of record carried by an event.
func recordType(record any) string {
	switch record.(type) {
	case domain.ActivityRecord:
		return "activity"
	case domain.MealRecord:
		return "meal"
	case domain.StepCountRecord:
		return "steps"
	}
	return "unknown"
}
