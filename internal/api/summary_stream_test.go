package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/auth"
	"example.com/smartfit/internal/domain"
)

func TestSummaryStreamFollowsRecordsAndPeriod(t *testing.T) {
	f := newFixture(t, auth.Config{})
	_, err := f.store.InsertMeal(context.Background(), domain.MealRecord{
		Name:      "Pasta with Sauce",
		Calories:  500,
		Category:  domain.MealDinner,
		Portion:   1,
		Timestamp: fixedNow.Add(-3 * domain.Day),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/summary/stream?period=today"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	first := readSummary(t, conn)
	require.Equal(t, "today", first.Period)
	require.Zero(t, first.CaloriesConsumed)

	require.NoError(t, conn.WriteJSON(PeriodMessage{Period: "this_week"}))
	week := readSummary(t, conn)
	require.Equal(t, "this_week", week.Period)
	require.Equal(t, 500, week.CaloriesConsumed)

	rec := f.do(t, http.MethodPost, "/v1/activities", map[string]any{"type": "running", "duration_min": 30})
	require.Equal(t, http.StatusCreated, rec.Code)

	updated := readSummary(t, conn)
	require.Equal(t, 294, updated.CaloriesBurned)
	require.Equal(t, 500-294, updated.NetCalories)
}

func TestSummaryStreamRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t, auth.Config{})
	rec := f.do(t, http.MethodGet, "/v1/summary/stream?period=decade", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func readSummary(t *testing.T, conn *websocket.Conn) SummaryView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view SummaryView
	require.NoError(t, conn.ReadJSON(&view))
	return view
}
