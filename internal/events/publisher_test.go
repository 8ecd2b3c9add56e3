package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/domain"
)

func TestPublisherDeliversEnvelope(t *testing.T) {
	writer := &stubWriter{}
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(writer, "smartfit.records", WithLogger(logger))

	at := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	pub.Notify(context.Background(), domain.ChangeEvent{
		Type:       "activity.logged",
		RecordID:   7,
		OccurredAt: at,
		Record: domain.ActivityRecord{
			ID:          7,
			Type:        domain.ActivityType{Kind: domain.ActivityOther, Label: "Climbing"},
			DurationMin: 45,
			Calories:    400,
			Timestamp:   at,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go pub.Run(ctx)
	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	pub.Wait()

	msg := writer.messages()[0]
	require.Equal(t, "smartfit.records", writer.topic)
	require.Equal(t, "7", string(msg.Key))
	require.Equal(t, []kafka.Header{
		{Key: "event_type", Value: []byte("activity.logged")},
		{Key: "record_type", Value: []byte("activity")},
	}, msg.Headers[1:])

	var body struct {
		EventID   string   `json:"event_id"`
		EventType string   `json:"event_type"`
		Record    Activity `json:"record"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	require.Equal(t, "activity.logged", body.EventType)
	_, err := uuid.Parse(body.EventID)
	require.NoError(t, err)
	require.Equal(t, "Climbing", body.Record.Type)
	require.True(t, body.Record.Custom)
	require.Equal(t, 400, body.Record.Calories)
}

func TestPublisherDrainsQueueOnShutdown(t *testing.T) {
	writer := &stubWriter{}
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(writer, "records", WithLogger(logger))

	for i := int64(1); i <= 3; i++ {
		pub.Notify(context.Background(), domain.ChangeEvent{Type: "meal.deleted", RecordID: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Run(ctx)

	require.Equal(t, 3, writer.count())
}

func TestPublisherDropsWhenQueueFull(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := NewPublisher(&stubWriter{}, "records", WithLogger(logger), WithBuffer(1))

	pub.Notify(context.Background(), domain.ChangeEvent{Type: "steps.updated", RecordID: 1})
	pub.Notify(context.Background(), domain.ChangeEvent{Type: "steps.updated", RecordID: 2})

	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestPublisherLogsWriteFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := NewPublisher(&stubWriter{err: errors.New("broker down")}, "records", WithLogger(logger))
	pub.Notify(context.Background(), domain.ChangeEvent{Type: "meal.logged", RecordID: 1, Record: domain.MealRecord{ID: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Run(ctx)

	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

type stubWriter struct {
	mu    sync.Mutex
	topic string
	msgs  []kafka.Message
	err   error
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.topic = topic
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func (w *stubWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}
