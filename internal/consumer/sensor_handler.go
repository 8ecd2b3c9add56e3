package consumer

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/sensor"
)

// Recorder accepts cumulative sensor readings.
type Recorder interface {
	Record(sinceBoot int64) (int, error)
}

// SensorHandler forwards readings to the step tracker. Readings received
// while tracking is off are dropped and committed.
type SensorHandler struct {
	recorder Recorder
	logger   logrus.FieldLogger
}

// NewSensorHandler constructs a handler backed by recorder.
func NewSensorHandler(recorder Recorder, logger logrus.FieldLogger) *SensorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SensorHandler{recorder: recorder, logger: logger}
}

// Handle records one reading.
func (h *SensorHandler) Handle(_ context.Context, msg Message) error {
	delta, err := h.recorder.Record(msg.Reading.StepsSinceBoot)
	if errors.Is(err, sensor.ErrTrackingDisabled) {
		h.logger.WithField("device_id", msg.DeviceID).Debug("reading ignored, tracking disabled")
		return nil
	}
	if err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{
		"device_id": msg.DeviceID,
		"delta":     delta,
	}).Debug("sensor reading recorded")
	return nil
}
