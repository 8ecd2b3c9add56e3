package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/sensor"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorded := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	msg := kafka.Message{
		Topic:     "sensor_readings",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     []byte(`{"steps_since_boot":4200,"recorded_at":"2024-03-14T09:30:00Z"}`),
		Headers:   []kafka.Header{{Key: "device_id", Value: []byte("watch-1")}},
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, int64(4200), handler.last.Reading.StepsSinceBoot)
	require.True(t, recorded.Equal(handler.last.Reading.RecordedAt))
	require.Equal(t, "watch-1", handler.last.DeviceID)
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "sensor_readings",
		Offset: 20,
		Time:   time.Now().UTC(),
		Key:    []byte("phone-7"),
		Value:  []byte(`{"steps_since_boot":12}`),
	}

	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{err: errors.New("boom")}
	logger, _ := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, "phone-7", handler.last.DeviceID)
	require.Equal(t, msg.Time, handler.last.Reading.RecordedAt)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "sensor_readings", Offset: 1, Value: []byte(`not json`)},
			{Topic: "sensor_readings", Offset: 2, Value: []byte(`{"steps_since_boot":-5}`)},
			{Topic: "sensor_readings", Offset: 3},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	logger, hook := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 0, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	require.Len(t, hook.AllEntries(), 3)
}

func TestProcessorMetricsPerTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const topic = "metrics_probe"
	processedBefore := testutil.ToFloat64(processedCounter.WithLabelValues(topic))
	decodeBefore := testutil.ToFloat64(decodeErrorCounter.WithLabelValues(topic))
	handlerBefore := testutil.ToFloat64(handlerErrorCounter.WithLabelValues(topic))

	sent := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: topic, Offset: 1, Time: sent, Value: []byte(`{"steps_since_boot":1}`)},
			{Topic: topic, Offset: 2, Value: []byte(`{`)},
		},
		after: contextCanceled,
	}
	logger, _ := test.NewNullLogger()

	err := NewProcessor(reader, &stubHandler{}, WithLogger(logger)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, processedBefore+1, testutil.ToFloat64(processedCounter.WithLabelValues(topic)))
	require.Equal(t, decodeBefore+1, testutil.ToFloat64(decodeErrorCounter.WithLabelValues(topic)))
	require.Equal(t, handlerBefore, testutil.ToFloat64(handlerErrorCounter.WithLabelValues(topic)))
	require.Equal(t, float64(sent.Unix()), testutil.ToFloat64(lastMessageGauge.WithLabelValues(topic)))
}

func TestSensorHandlerDropsReadingsWhileDisabled(t *testing.T) {
	logger, _ := test.NewNullLogger()

	disabled := NewSensorHandler(recorderFunc(func(int64) (int, error) {
		return 0, sensor.ErrTrackingDisabled
	}), logger)
	require.NoError(t, disabled.Handle(context.Background(), Message{}))

	failing := NewSensorHandler(recorderFunc(func(int64) (int, error) {
		return 0, errors.New("store down")
	}), logger)
	require.Error(t, failing.Handle(context.Background(), Message{}))

	var got int64
	ok := NewSensorHandler(recorderFunc(func(v int64) (int, error) {
		got = v
		return 10, nil
	}), logger)
	require.NoError(t, ok.Handle(context.Background(), Message{Reading: Reading{StepsSinceBoot: 99}}))
	require.Equal(t, int64(99), got)
}

type recorderFunc func(int64) (int, error)

func (f recorderFunc) Record(v int64) (int, error) { return f(v) }

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
