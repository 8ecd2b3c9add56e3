//go:build integration

package consumer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/persistence/memory"
	"example.com/smartfit/internal/preferences"
	"example.com/smartfit/internal/sensor"
)

func TestKafkaSensorReadingsReachStepStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	broker := brokers[0]
	topic := "sensor_readings"

	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))

	logger, _ := test.NewNullLogger()
	store := memory.NewStore()
	prefs := preferences.Open(filepath.Join(t.TempDir(), "prefs.yaml"), logger)
	tracker := sensor.NewTracker(store, prefs, sensor.WithLogger(logger))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		GroupID:     "smartfit-integration",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	proc := NewProcessor(reader, NewSensorHandler(tracker, logger), WithLogger(logger))
	go func() { _ = proc.Run(consumerCtx) }()

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	require.NoError(t, writer.WriteMessages(ctx,
		kafka.Message{Key: []byte("watch-1"), Value: []byte(`{"steps_since_boot":5000}`)},
		kafka.Message{Key: []byte("watch-1"), Value: []byte(`garbage`)},
		kafka.Message{Key: []byte("watch-1"), Value: []byte(`{"steps_since_boot":5800}`)},
	))

	require.Eventually(t, func() bool {
		delta, pending := tracker.Pending()
		return pending && delta == 800
	}, 60*time.Second, 250*time.Millisecond)

	require.NoError(t, tracker.Flush(ctx))
	day := domain.DayWindow(time.Now())
	rec, err := store.SensorStepsFor(ctx, day.Start, day.End)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 800, rec.Steps)
}
