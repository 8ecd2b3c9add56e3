// Package preferences persists the user's settings and exposes them as live values.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/stream"
)

// ThemeMode selects the client colour scheme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// Valid reports whether m is one of the known modes.
func (m ThemeMode) Valid() bool {
	switch m {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Default goals.
const (
	DefaultStepGoal    = 10000
	DefaultCalorieGoal = 2000
)

// Settings is the user-visible preference set.
type Settings struct {
	ThemeMode           ThemeMode `yaml:"theme_mode" json:"theme_mode"`
	DailyStepGoal       int       `yaml:"daily_step_goal" json:"daily_step_goal"`
	DailyCalorieGoal    int       `yaml:"daily_calorie_goal" json:"daily_calorie_goal"`
	StepTrackingEnabled bool      `yaml:"step_tracking_enabled" json:"step_tracking_enabled"`
}

// Defaults returns the initial settings.
func Defaults() Settings {
	return Settings{
		ThemeMode:        ThemeSystem,
		DailyStepGoal:    DefaultStepGoal,
		DailyCalorieGoal: DefaultCalorieGoal,
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	if !s.ThemeMode.Valid() {
		return &domain.ValidationError{Field: "theme_mode", Message: "must be light, dark or system"}
	}
	if s.DailyStepGoal <= 0 {
		return &domain.ValidationError{Field: "daily_step_goal", Message: "must be positive"}
	}
	if s.DailyCalorieGoal <= 0 {
		return &domain.ValidationError{Field: "daily_calorie_goal", Message: "must be positive"}
	}
	return nil
}

// SensorBaseline is the step-sensor reference point for one calendar day.
type SensorBaseline struct {
	Day       string `yaml:"day"`
	Baseline  int64  `yaml:"baseline"`
	LastDelta int    `yaml:"last_delta"`
}

type document struct {
	Settings `yaml:",inline"`
	Sensor   SensorBaseline `yaml:"sensor"`
}

// Store is a YAML-file backed preference store. Writes are serialised and
// each one replaces the file atomically before subscribers are notified.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    document
	feed   *stream.Feed[Settings]
	logger logrus.FieldLogger
}

// Open loads path. A missing file yields defaults; an unreadable one is logged
// and also yields defaults.
func Open(path string, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	doc := document{Settings: Defaults()}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		logger.WithError(err).WithField("path", path).Error("read preferences failed, using defaults")
	default:
		loaded := document{Settings: Defaults()}
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			logger.WithError(err).WithField("path", path).Error("parse preferences failed, using defaults")
		} else if err := loaded.Settings.Validate(); err != nil {
			logger.WithError(err).WithField("path", path).Error("invalid preferences, using defaults")
		} else {
			doc = loaded
		}
	}

	return &Store{
		path:   path,
		doc:    doc,
		feed:   stream.NewFeed(doc.Settings),
		logger: logger,
	}
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	return s.feed.Value()
}

// Watch streams the settings, starting with the current value.
func (s *Store) Watch(ctx context.Context) <-chan Settings {
	return s.feed.Subscribe(ctx)
}

// ThemeMode streams theme changes.
func (s *Store) ThemeMode(ctx context.Context) <-chan ThemeMode {
	return stream.Distinct(ctx, stream.Map(ctx, s.Watch(ctx), func(v Settings) ThemeMode { return v.ThemeMode }))
}

// DailyStepGoal streams step-goal changes.
func (s *Store) DailyStepGoal(ctx context.Context) <-chan int {
	return stream.Distinct(ctx, stream.Map(ctx, s.Watch(ctx), func(v Settings) int { return v.DailyStepGoal }))
}

// DailyCalorieGoal streams calorie-goal changes.
func (s *Store) DailyCalorieGoal(ctx context.Context) <-chan int {
	return stream.Distinct(ctx, stream.Map(ctx, s.Watch(ctx), func(v Settings) int { return v.DailyCalorieGoal }))
}

// StepTrackingEnabled streams tracking toggles.
func (s *Store) StepTrackingEnabled(ctx context.Context) <-chan bool {
	return stream.Distinct(ctx, stream.Map(ctx, s.Watch(ctx), func(v Settings) bool { return v.StepTrackingEnabled }))
}

// SetThemeMode persists the theme.
func (s *Store) SetThemeMode(mode ThemeMode) error {
	_, err := s.Update(func(v *Settings) { v.ThemeMode = mode })
	return err
}

// SetDailyStepGoal persists the step goal.
func (s *Store) SetDailyStepGoal(goal int) error {
	_, err := s.Update(func(v *Settings) { v.DailyStepGoal = goal })
	return err
}

// SetDailyCalorieGoal persists the calorie goal.
func (s *Store) SetDailyCalorieGoal(goal int) error {
	_, err := s.Update(func(v *Settings) { v.DailyCalorieGoal = goal })
	return err
}

// SetStepTrackingEnabled persists the tracking toggle.
func (s *Store) SetStepTrackingEnabled(enabled bool) error {
	_, err := s.Update(func(v *Settings) { v.StepTrackingEnabled = enabled })
	return err
}

// Update applies fn to a copy of the settings, validates, persists and publishes.
// Nothing changes when validation or the write fails.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc
	fn(&next.Settings)
	if err := next.Settings.Validate(); err != nil {
		return s.doc.Settings, err
	}
	if next.Settings == s.doc.Settings {
		return next.Settings, nil
	}
	if err := s.write(next); err != nil {
		return s.doc.Settings, err
	}
	s.doc = next
	s.feed.Publish(next.Settings)
	return next.Settings, nil
}

// SensorBaseline returns the stored sensor reference point.
func (s *Store) SensorBaseline() SensorBaseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Sensor
}

// SetSensorBaseline persists the sensor reference point.
func (s *Store) SetSensorBaseline(b SensorBaseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc
	next.Sensor = b
	if err := s.write(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *Store) write(doc document) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
