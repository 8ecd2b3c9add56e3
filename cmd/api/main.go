package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/aggregate"
	"example.com/smartfit/internal/api"
	"example.com/smartfit/internal/auth"
	"example.com/smartfit/internal/config"
	"example.com/smartfit/internal/consumer"
	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/events"
	"example.com/smartfit/internal/persistence/memory"
	"example.com/smartfit/internal/persistence/postgres"
	"example.com/smartfit/internal/persistence/sqlite"
	"example.com/smartfit/internal/preferences"
	"example.com/smartfit/internal/retention"
	"example.com/smartfit/internal/sensor"
	"example.com/smartfit/internal/suggestions"
	httptransport "example.com/smartfit/internal/transport/http"
)

// store bundles the selected driver with its lifecycle hooks.
type store struct {
	domain.RecordStore
	ping  func(context.Context) error
	close func()
}

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logger.WithField("service", "smartfit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.close()

	prefs := preferences.Open(cfg.PreferencesPath, log)

	var notifier domain.ChangeNotifier = events.Nop{}
	var publisher *events.Publisher
	var producer *events.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers)
		publisher = events.NewPublisher(producer, cfg.EventsTopic, events.WithLogger(log))
		notifier = publisher
		go publisher.Run(ctx)
	}

	records := domain.NewService(st, domain.WithNotifier(notifier), domain.WithLogger(log))
	aggregator := aggregate.New(st, aggregate.WithLogger(log))

	catalog := suggestions.NewClient(suggestions.ClientConfig{
		BaseURL:       cfg.SuggestionBaseURL,
		APIKey:        cfg.SuggestionAPIKey,
		Host:          cfg.SuggestionHost,
		Timeout:       cfg.SuggestionTimeout,
		RatePerMinute: cfg.SuggestionRatePerMinute,
	}, nil)
	suggestionService := suggestions.NewService(catalog, suggestions.NewCache(cfg.SuggestionCacheTTL), suggestions.WithLogger(log))

	tracker := sensor.NewTracker(st, prefs,
		sensor.WithLogger(log),
		sensor.WithEnabled(func() bool { return prefs.Settings().StepTrackingEnabled }),
		sensor.WithNotifier(notifier),
	)

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		sensor.Supervise(ctx, prefs.StepTrackingEnabled(ctx), func(ctx context.Context) error {
			return runIngestion(ctx, cfg, tracker, log)
		}, log)
	}()

	purger := retention.NewPurger(st, retention.WithRetention(cfg.StepRetention), retention.WithLogger(log))
	if _, err := purger.Run(ctx); err != nil {
		log.WithError(err).Warn("initial retention pass failed")
	}
	scheduler, err := purger.Schedule(ctx, cfg.RetentionSchedule)
	if err != nil {
		log.WithError(err).Fatal("invalid retention schedule")
	}

	handler := api.NewHandler(api.Dependencies{
		Records:     records,
		Aggregator:  aggregator,
		Suggestions: suggestionService,
		Preferences: prefs,
		Sensor:      tracker,
		Ping:        st.ping,
		Logger:      log,
	})
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	if !authCfg.Enabled() {
		log.Warn("JWT_SECRET not set, authentication disabled")
	}

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(router, httptransport.ChainConfig{
		Auth:        authCfg,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	}))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("address", cfg.HTTPAddress).WithField("store", cfg.StoreDriver).Info("smartfit listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}

	cancel()
	<-scheduler.Stop().Done()
	background.Wait()
	if publisher != nil {
		publisher.Wait()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.WithError(err).Warn("close kafka producer failed")
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return &store{RecordStore: memory.NewStore(), close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresMigrationsPath != "" {
			if err := postgres.ApplyMigrations(ctx, pool, cfg.PostgresMigrationsPath); err != nil {
				pool.Close()
				return nil, err
			}
		}
		repo := postgres.NewRepository(pool, log)
		return &store{RecordStore: repo, ping: repo.Ping, close: pool.Close}, nil

	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &store{RecordStore: db, ping: db.Ping, close: func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("close sqlite failed")
			}
		}}, nil
	}
}

// runIngestion flushes the tracker periodically and, when brokers are
// configured, consumes sensor readings from Kafka until ctx ends.
func runIngestion(ctx context.Context, cfg config.Config, tracker *sensor.Tracker, log logrus.FieldLogger) error {
	var wg sync.WaitGroup

	if len(cfg.KafkaBrokers) > 0 {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           cfg.SensorTopic,
			MinBytes:        1,
			MaxBytes:        1e6,
			CommitInterval:  time.Second,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, consumer.NewSensorHandler(tracker, log), consumer.WithLogger(log))

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()
			log.WithField("topic", cfg.SensorTopic).Info("sensor consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("sensor consumer stopped")
			}
		}()
	}

	err := tracker.Run(ctx, cfg.StepFlushInterval)
	wg.Wait()
	return err
}
