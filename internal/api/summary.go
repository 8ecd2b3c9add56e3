package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"example.com/smartfit/internal/aggregate"
	"example.com/smartfit/internal/domain"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// Origins are enforced by the CORS layer and bearer auth.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressView expresses a summary against the daily goals.
type ProgressView struct {
	StepGoal        int     `json:"step_goal"`
	StepRatio       float64 `json:"step_ratio"`
	StepGoalReached bool    `json:"step_goal_reached"`
	CalorieGoal     int     `json:"calorie_goal"`
	CalorieRatio    float64 `json:"calorie_ratio"`
}

// SummaryView is the dashboard aggregate for one window.
type SummaryView struct {
	Period           string        `json:"period"`
	WindowStart      time.Time     `json:"window_start"`
	WindowEnd        time.Time     `json:"window_end"`
	TotalSteps       int           `json:"total_steps"`
	CaloriesBurned   int           `json:"calories_burned"`
	CaloriesConsumed int           `json:"calories_consumed"`
	NetCalories      int           `json:"net_calories"`
	Progress         *ProgressView `json:"progress,omitempty"`
}

// PeriodMessage is sent by stream clients to switch the window.
type PeriodMessage struct {
	Period string `json:"period"`
}

func (h *Handler) summaryView(period domain.Period, window domain.Window, s domain.Summary) SummaryView {
	view := SummaryView{
		Period:           string(period),
		WindowStart:      window.Start,
		WindowEnd:        window.End,
		TotalSteps:       s.TotalSteps,
		CaloriesBurned:   s.CaloriesBurned,
		CaloriesConsumed: s.CaloriesConsumed,
		NetCalories:      s.NetCalories,
	}
	// Goals are daily, so progress is only meaningful for today.
	if period == domain.PeriodToday && h.prefs != nil {
		settings := h.prefs.Settings()
		p := domain.Progress(s, settings.DailyStepGoal, settings.DailyCalorieGoal)
		view.Progress = &ProgressView{
			StepGoal:        p.StepGoal,
			StepRatio:       p.StepRatio,
			StepGoalReached: p.StepGoalReached,
			CalorieGoal:     p.CalorieGoal,
			CalorieRatio:    p.CalorieRatio,
		}
	}
	return view
}

func parsePeriodParam(r *http.Request) (domain.Period, error) {
	period, ok := domain.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		return "", &domain.ValidationError{Field: "period", Message: "must be today or this_week"}
	}
	return period, nil
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	s, window, err := h.records.Summary(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.summaryView(period, window, s))
}

// summaryStream upgrades to a WebSocket carrying one aggregator subscription.
// Clients send {"period": "..."} to switch windows; closing the socket ends
// the subscription.
func (h *Handler) summaryStream(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	periods := make(chan domain.Period)
	updates, err := h.aggregator.Subscribe(ctx, period, periods)
	if err != nil {
		h.logger.WithError(err).Error("summary subscription failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeTimeout))
		return
	}

	go h.readPeriods(ctx, cancel, conn, periods)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(conn, update); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, update aggregate.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(h.summaryView(update.Period, update.Window, update.Summary))
}

// readPeriods forwards period messages until the client goes away. Malformed
// messages and unknown periods are ignored.
func (h *Handler) readPeriods(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, periods chan<- domain.Period) {
	defer cancel()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("summary stream closed unexpectedly")
			}
			return
		}
		var msg PeriodMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.WithError(err).Debug("ignoring malformed stream message")
			continue
		}
		period, ok := domain.ParsePeriod(msg.Period)
		if !ok || msg.Period == "" {
			h.logger.WithField("period", msg.Period).Debug("ignoring unknown period")
			continue
		}
		select {
		case periods <- period:
		case <-ctx.Done():
			return
		}
	}
}
