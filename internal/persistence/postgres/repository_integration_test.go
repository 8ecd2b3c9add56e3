//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/smartfit/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("smartfit"),
		postgrescontainer.WithUsername("smartfit"),
		postgrescontainer.WithPassword("smartfit"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, ApplyMigrations(ctx, pool, resolvePath(t, "../../../db/postgres/migrations")))
	return NewRepository(pool, nil)
}

func TestRepositoryActivityLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	ts := time.Now().Truncate(time.Millisecond)

	id, err := repo.InsertActivity(ctx, domain.ActivityRecord{
		Type:        domain.ActivityType{Kind: domain.ActivityRunning},
		DurationMin: 30,
		Calories:    294,
		Timestamp:   ts,
	})
	require.NoError(t, err)

	stored, err := repo.GetActivity(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, ts.Equal(stored.Timestamp))

	list, err := repo.ListActivities(ctx, ts, ts.Add(time.Millisecond))
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeleteActivity(ctx, id))
	require.ErrorIs(t, repo.DeleteActivity(ctx, id), domain.ErrActivityNotFound)
}

func TestRepositorySensorStepsAndRetention(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	day := domain.DayWindow(time.Now())

	id, err := repo.InsertStepCount(ctx, domain.StepCountRecord{Steps: 50, Timestamp: day.Start.Add(time.Hour), Source: domain.StepSourceSensor})
	require.NoError(t, err)

	sensor, err := repo.SensorStepsFor(ctx, day.Start, day.End)
	require.NoError(t, err)
	require.Equal(t, id, sensor.ID)

	_, err = repo.InsertStepCount(ctx, domain.StepCountRecord{Steps: 10, Timestamp: day.Start.Add(-40 * domain.Day), Source: domain.StepSourceManual})
	require.NoError(t, err)

	removed, err := repo.DeleteStepsBefore(ctx, day.Start.Add(-30*domain.Day))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}

func TestRepositoryRejectsOutOfRangeRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.InsertMeal(ctx, domain.MealRecord{Name: "Soup", Calories: 10, Category: "brunch", Portion: 1, Timestamp: time.Now()})
	require.Error(t, err)
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
