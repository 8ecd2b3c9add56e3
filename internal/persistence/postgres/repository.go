// Package postgres implements the record store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/observability"
	"example.com/smartfit/internal/persistence"
	"example.com/smartfit/internal/stream"
)

// Repository provides Postgres-backed persistence for SmartFit records.
type Repository struct {
	pool   *pgxpool.Pool
	tables *persistence.Tables
	logger logrus.FieldLogger
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, logger logrus.FieldLogger) *Repository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Repository{pool: pool, tables: persistence.NewTables(), logger: logger}
}

// Ping checks the pool for health probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
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

func affected(tag pgconn.CommandTag, notFound error) error {
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (r *Repository) bump(table *stream.Feed[uint64], kind string) {
	persistence.Bump(table)
	observability.RecordPersisted(kind, time.Now())
}

const activityColumns = `id, kind, label, duration_min, calories, steps, recorded_at, notes`

func scanActivity(row pgx.Row) (domain.ActivityRecord, error) {
	var (
		rec   domain.ActivityRecord
		kind  string
		label string
	)
	if err := row.Scan(&rec.ID, &kind, &label, &rec.DurationMin, &rec.Calories, &rec.Steps, &rec.Timestamp, &rec.Notes); err != nil {
		return domain.ActivityRecord{}, err
	}
	rec.Type = domain.ActivityType{Kind: domain.ActivityKind(kind), Label: label}
	rec.Timestamp = rec.Timestamp.Local()
	return rec, nil
}

// ListActivities implements domain.ActivityStore.
func (r *Repository) ListActivities(ctx context.Context, start, end time.Time) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE recorded_at >= $1 AND recorded_at < $2 ORDER BY recorded_at DESC, id DESC`,
		start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanActivity)
}

// WatchActivities implements domain.ActivityStore.
func (r *Repository) WatchActivities(ctx context.Context, start, end time.Time) (<-chan []domain.ActivityRecord, error) {
	return persistence.Watch(ctx, r.tables.Activities, func(ctx context.Context) ([]domain.ActivityRecord, error) {
		return r.ListActivities(ctx, start, end)
	}, r.logger)
}

// GetActivity returns nil when the record does not exist.
func (r *Repository) GetActivity(ctx context.Context, id int64) (*domain.ActivityRecord, error) {
	rec, err := scanActivity(r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertActivity implements domain.ActivityStore.
func (r *Repository) InsertActivity(ctx context.Context, rec domain.ActivityRecord) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO activities (kind, label, duration_min, calories, steps, recorded_at, notes) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		string(rec.Type.Kind), rec.Type.Label, rec.DurationMin, rec.Calories, rec.Steps, rec.Timestamp, rec.Notes,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	r.bump(r.tables.Activities, "activity")
	return id, nil
}

// UpdateActivity implements domain.ActivityStore.
func (r *Repository) UpdateActivity(ctx context.Context, rec domain.ActivityRecord) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE activities SET kind=$1, label=$2, duration_min=$3, calories=$4, steps=$5, recorded_at=$6, notes=$7 WHERE id=$8`,
		string(rec.Type.Kind), rec.Type.Label, rec.DurationMin, rec.Calories, rec.Steps, rec.Timestamp, rec.Notes, rec.ID)
	if err != nil {
		return err
	}
	if err := affected(tag, domain.ErrActivityNotFound); err != nil {
		return err
	}
	r.bump(r.tables.Activities, "activity")
	return nil
}

// DeleteActivity implements domain.ActivityStore.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if err := affected(tag, domain.ErrActivityNotFound); err != nil {
		return err
	}
	r.bump(r.tables.Activities, "activity")
	return nil
}

const mealColumns = `id, name, calories, category, recorded_at, portion, notes`

func scanMeal(row pgx.Row) (domain.MealRecord, error) {
	var (
		rec      domain.MealRecord
		category string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Calories, &category, &rec.Timestamp, &rec.Portion, &rec.Notes); err != nil {
		return domain.MealRecord{}, err
	}
	rec.Category = domain.MealCategory(category)
	rec.Timestamp = rec.Timestamp.Local()
	return rec, nil
}

// ListMeals implements domain.MealStore.
func (r *Repository) ListMeals(ctx context.Context, start, end time.Time) ([]domain.MealRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE recorded_at >= $1 AND recorded_at < $2 ORDER BY recorded_at DESC, id DESC`,
		start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMeal)
}

// WatchMeals implements domain.MealStore.
func (r *Repository) WatchMeals(ctx context.Context, start, end time.Time) (<-chan []domain.MealRecord, error) {
	return persistence.Watch(ctx, r.tables.Meals, func(ctx context.Context) ([]domain.MealRecord, error) {
		return r.ListMeals(ctx, start, end)
	}, r.logger)
}

// GetMeal returns nil when the record does not exist.
func (r *Repository) GetMeal(ctx context.Context, id int64) (*domain.MealRecord, error) {
	rec, err := scanMeal(r.pool.QueryRow(ctx, `SELECT `+mealColumns+` FROM meals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertMeal implements domain.MealStore.
func (r *Repository) InsertMeal(ctx context.Context, rec domain.MealRecord) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO meals (name, calories, category, recorded_at, portion, notes) VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		rec.Name, rec.Calories, string(rec.Category), rec.Timestamp, rec.Portion, rec.Notes,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	r.bump(r.tables.Meals, "meal")
	return id, nil
}

// UpdateMeal implements domain.MealStore.
func (r *Repository) UpdateMeal(ctx context.Context, rec domain.MealRecord) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE meals SET name=$1, calories=$2, category=$3, recorded_at=$4, portion=$5, notes=$6 WHERE id=$7`,
		rec.Name, rec.Calories, string(rec.Category), rec.Timestamp, rec.Portion, rec.Notes, rec.ID)
	if err != nil {
		return err
	}
	if err := affected(tag, domain.ErrMealNotFound); err != nil {
		return err
	}
	r.bump(r.tables.Meals, "meal")
	return nil
}

// DeleteMeal implements domain.MealStore.
func (r *Repository) DeleteMeal(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meals WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if err := affected(tag, domain.ErrMealNotFound); err != nil {
		return err
	}
	r.bump(r.tables.Meals, "meal")
	return nil
}

const stepColumns = `id, steps, recorded_at, source`

func scanStepCount(row pgx.Row) (domain.StepCountRecord, error) {
	var (
		rec    domain.StepCountRecord
		source string
	)
	if err := row.Scan(&rec.ID, &rec.Steps, &rec.Timestamp, &source); err != nil {
		return domain.StepCountRecord{}, err
	}
	rec.Source = domain.StepSource(source)
	rec.Timestamp = rec.Timestamp.Local()
	return rec, nil
}

// ListSteps implements domain.StepStore.
func (r *Repository) ListSteps(ctx context.Context, start, end time.Time) ([]domain.StepCountRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stepColumns+` FROM step_counts WHERE recorded_at >= $1 AND recorded_at < $2 ORDER BY recorded_at DESC, id DESC`,
		start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStepCount)
}

// WatchSteps implements domain.StepStore.
func (r *Repository) WatchSteps(ctx context.Context, start, end time.Time) (<-chan []domain.StepCountRecord, error) {
	return persistence.Watch(ctx, r.tables.Steps, func(ctx context.Context) ([]domain.StepCountRecord, error) {
		return r.ListSteps(ctx, start, end)
	}, r.logger)
}

// SensorStepsFor returns the newest sensor record inside the range, or nil.
func (r *Repository) SensorStepsFor(ctx context.Context, start, end time.Time) (*domain.StepCountRecord, error) {
	rec, err := scanStepCount(r.pool.QueryRow(ctx,
		`SELECT `+stepColumns+` FROM step_counts WHERE source=$1 AND recorded_at >= $2 AND recorded_at < $3 ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		string(domain.StepSourceSensor), start, end))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertStepCount implements domain.StepStore.
func (r *Repository) InsertStepCount(ctx context.Context, rec domain.StepCountRecord) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO step_counts (steps, recorded_at, source) VALUES ($1,$2,$3) RETURNING id`,
		rec.Steps, rec.Timestamp, string(rec.Source),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	r.bump(r.tables.Steps, "steps")
	return id, nil
}

// UpdateStepCount implements domain.StepStore.
func (r *Repository) UpdateStepCount(ctx context.Context, rec domain.StepCountRecord) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE step_counts SET steps=$1, recorded_at=$2, source=$3 WHERE id=$4`,
		rec.Steps, rec.Timestamp, string(rec.Source), rec.ID)
	if err != nil {
		return err
	}
	if err := affected(tag, domain.ErrStepCountNotFound); err != nil {
		return err
	}
	r.bump(r.tables.Steps, "steps")
	return nil
}

// DeleteStepsBefore implements domain.StepStore.
func (r *Repository) DeleteStepsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM step_counts WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, err
	}
	n := tag.RowsAffected()
	if n > 0 {
		persistence.Bump(r.tables.Steps)
	}
	return n, nil
}
