// Package sqlite implements the record store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/observability"
	"example.com/smartfit/internal/persistence"
	"example.com/smartfit/internal/stream"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	kind         TEXT    NOT NULL,
	label        TEXT    NOT NULL DEFAULT '',
	duration_min INTEGER NOT NULL,
	calories     INTEGER NOT NULL,
	steps        INTEGER NOT NULL DEFAULT 0,
	timestamp    INTEGER NOT NULL,
	notes        TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp);

CREATE TABLE IF NOT EXISTS meals (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT    NOT NULL,
	calories  INTEGER NOT NULL,
	category  TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	portion   REAL    NOT NULL DEFAULT 1.0,
	notes     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_meals_timestamp ON meals(timestamp);

CREATE TABLE IF NOT EXISTS step_counts (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	steps     INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	source    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_step_counts_timestamp ON step_counts(timestamp);
`

// Store persists records in SQLite.
type Store struct {
	db     *sql.DB
	tables *persistence.Tables
	logger logrus.FieldLogger
}

// Open creates the database file if needed, applies pragmas and the schema.
func Open(ctx context.Context, path string, logger logrus.FieldLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}

	store := New(db, logger)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{db: db, tables: persistence.NewTables(), logger: logger}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) bump(table *stream.Feed[uint64], kind string) {
	persistence.Bump(table)
	observability.RecordPersisted(kind, time.Now())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (domain.ActivityRecord, error) {
	var (
		rec   domain.ActivityRecord
		kind  string
		label string
		ts    int64
	)
	if err := row.Scan(&rec.ID, &kind, &label, &rec.DurationMin, &rec.Calories, &rec.Steps, &ts, &rec.Notes); err != nil {
		return domain.ActivityRecord{}, err
	}
	rec.Type = domain.ActivityType{Kind: domain.ActivityKind(kind), Label: label}
	rec.Timestamp = domain.FromMillis(ts)
	return rec, nil
}

func scanMeal(row scanner) (domain.MealRecord, error) {
	var (
		rec      domain.MealRecord
		category string
		ts       int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Calories, &category, &ts, &rec.Portion, &rec.Notes); err != nil {
		return domain.MealRecord{}, err
	}
	rec.Category = domain.MealCategory(category)
	rec.Timestamp = domain.FromMillis(ts)
	return rec, nil
}

func scanStepCount(row scanner) (domain.StepCountRecord, error) {
	var (
		rec    domain.StepCountRecord
		source string
		ts     int64
	)
	if err := row.Scan(&rec.ID, &rec.Steps, &ts, &source); err != nil {
		return domain.StepCountRecord{}, err
	}
	rec.Source = domain.StepSource(source)
	rec.Timestamp = domain.FromMillis(ts)
	return rec, nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

const activityColumns = `id, kind, label, duration_min, calories, steps, timestamp, notes`

// ListActivities implements domain.ActivityStore.
func (s *Store) ListActivities(ctx context.Context, start, end time.Time) ([]domain.ActivityRecord, error) {
	return queryAll(ctx, s.db, scanActivity,
		`SELECT `+activityColumns+` FROM activities WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC, id DESC`,
		domain.ToMillis(start), domain.ToMillis(end))
}

// WatchActivities implements domain.ActivityStore.
func (s *Store) WatchActivities(ctx context.Context, start, end time.Time) (<-chan []domain.ActivityRecord, error) {
	return persistence.Watch(ctx, s.tables.Activities, func(ctx context.Context) ([]domain.ActivityRecord, error) {
		return s.ListActivities(ctx, start, end)
	}, s.logger)
}

// GetActivity returns nil when the record does not exist.
func (s *Store) GetActivity(ctx context.Context, id int64) (*domain.ActivityRecord, error) {
	rec, err := scanActivity(s.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertActivity implements domain.ActivityStore.
func (s *Store) InsertActivity(ctx context.Context, rec domain.ActivityRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (kind, label, duration_min, calories, steps, timestamp, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Type.Kind), rec.Type.Label, rec.DurationMin, rec.Calories, rec.Steps, domain.ToMillis(rec.Timestamp), rec.Notes)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.bump(s.tables.Activities, "activity")
	return id, nil
}

// UpdateActivity implements domain.ActivityStore.
func (s *Store) UpdateActivity(ctx context.Context, rec domain.ActivityRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET kind = ?, label = ?, duration_min = ?, calories = ?, steps = ?, timestamp = ?, notes = ? WHERE id = ?`,
		string(rec.Type.Kind), rec.Type.Label, rec.DurationMin, rec.Calories, rec.Steps, domain.ToMillis(rec.Timestamp), rec.Notes, rec.ID)
	if err != nil {
		return err
	}
	if err := expectOne(res, domain.ErrActivityNotFound); err != nil {
		return err
	}
	s.bump(s.tables.Activities, "activity")
	return nil
}

// DeleteActivity implements domain.ActivityStore.
func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectOne(res, domain.ErrActivityNotFound); err != nil {
		return err
	}
	s.bump(s.tables.Activities, "activity")
	return nil
}

const mealColumns = `id, name, calories, category, timestamp, portion, notes`

// ListMeals implements domain.MealStore.
func (s *Store) ListMeals(ctx context.Context, start, end time.Time) ([]domain.MealRecord, error) {
	return queryAll(ctx, s.db, scanMeal,
		`SELECT `+mealColumns+` FROM meals WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC, id DESC`,
		domain.ToMillis(start), domain.ToMillis(end))
}

// WatchMeals implements domain.MealStore.
func (s *Store) WatchMeals(ctx context.Context, start, end time.Time) (<-chan []domain.MealRecord, error) {
	return persistence.Watch(ctx, s.tables.Meals, func(ctx context.Context) ([]domain.MealRecord, error) {
		return s.ListMeals(ctx, start, end)
	}, s.logger)
}

// GetMeal returns nil when the record does not exist.
func (s *Store) GetMeal(ctx context.Context, id int64) (*domain.MealRecord, error) {
	rec, err := scanMeal(s.db.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM meals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertMeal implements domain.MealStore.
func (s *Store) InsertMeal(ctx context.Context, rec domain.MealRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO meals (name, calories, category, timestamp, portion, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Calories, string(rec.Category), domain.ToMillis(rec.Timestamp), rec.Portion, rec.Notes)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.bump(s.tables.Meals, "meal")
	return id, nil
}

// UpdateMeal implements domain.MealStore.
func (s *Store) UpdateMeal(ctx context.Context, rec domain.MealRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meals SET name = ?, calories = ?, category = ?, timestamp = ?, portion = ?, notes = ? WHERE id = ?`,
		rec.Name, rec.Calories, string(rec.Category), domain.ToMillis(rec.Timestamp), rec.Portion, rec.Notes, rec.ID)
	if err != nil {
		return err
	}
	if err := expectOne(res, domain.ErrMealNotFound); err != nil {
		return err
	}
	s.bump(s.tables.Meals, "meal")
	return nil
}

// DeleteMeal implements domain.MealStore.
func (s *Store) DeleteMeal(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectOne(res, domain.ErrMealNotFound); err != nil {
		return err
	}
	s.bump(s.tables.Meals, "meal")
	return nil
}

const stepColumns = `id, steps, timestamp, source`

// ListSteps implements domain.StepStore.
func (s *Store) ListSteps(ctx context.Context, start, end time.Time) ([]domain.StepCountRecord, error) {
	return queryAll(ctx, s.db, scanStepCount,
		`SELECT `+stepColumns+` FROM step_counts WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC, id DESC`,
		domain.ToMillis(start), domain.ToMillis(end))
}

// WatchSteps implements domain.StepStore.
func (s *Store) WatchSteps(ctx context.Context, start, end time.Time) (<-chan []domain.StepCountRecord, error) {
	return persistence.Watch(ctx, s.tables.Steps, func(ctx context.Context) ([]domain.StepCountRecord, error) {
		return s.ListSteps(ctx, start, end)
	}, s.logger)
}

// SensorStepsFor returns the newest sensor record inside the range, or nil.
func (s *Store) SensorStepsFor(ctx context.Context, start, end time.Time) (*domain.StepCountRecord, error) {
	rec, err := scanStepCount(s.db.QueryRowContext(ctx,
		`SELECT `+stepColumns+` FROM step_counts WHERE source = ? AND timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		string(domain.StepSourceSensor), domain.ToMillis(start), domain.ToMillis(end)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertStepCount implements domain.StepStore.
func (s *Store) InsertStepCount(ctx context.Context, rec domain.StepCountRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO step_counts (steps, timestamp, source) VALUES (?, ?, ?)`,
		rec.Steps, domain.ToMillis(rec.Timestamp), string(rec.Source))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.bump(s.tables.Steps, "steps")
	return id, nil
}

// UpdateStepCount implements domain.StepStore.
func (s *Store) UpdateStepCount(ctx context.Context, rec domain.StepCountRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE step_counts SET steps = ?, timestamp = ?, source = ? WHERE id = ?`,
		rec.Steps, domain.ToMillis(rec.Timestamp), string(rec.Source), rec.ID)
	if err != nil {
		return err
	}
	if err := expectOne(res, domain.ErrStepCountNotFound); err != nil {
		return err
	}
	s.bump(s.tables.Steps, "steps")
	return nil
}

// DeleteStepsBefore implements domain.StepStore.
func (s *Store) DeleteStepsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM step_counts WHERE timestamp < ?`, domain.ToMillis(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		persistence.Bump(s.tables.Steps)
	}
	return n, nil
}
