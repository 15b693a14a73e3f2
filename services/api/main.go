package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/config"
	"github.com/tbs-timbangan/weighbridge/services/api/db"
	"github.com/tbs-timbangan/weighbridge/services/api/events"
	httpserver "github.com/tbs-timbangan/weighbridge/services/api/http"
	"github.com/tbs-timbangan/weighbridge/services/api/logging"
	"github.com/tbs-timbangan/weighbridge/services/api/scale"
	"github.com/tbs-timbangan/weighbridge/services/api/weighing"
)

// backend is satisfied by both the Postgres store and the in-memory store.
type backend interface {
	httpserver.Pinger
	weighing.RecordStore
	weighing.StationStore
	weighing.DeliveryNoteStore
	weighing.MessageStore
	Migrate(ctx context.Context) error
	Close()
}

type publisher interface {
	weighing.Publisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("db connection error", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	pub, err := openPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("kafka producer error", zap.Error(err))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("closing publisher", zap.Error(err))
		}
	}()

	stations := weighing.NewStationService(store, cfg.Stations, logger.Named("stations"))
	deps := httpserver.Deps{
		Store: store,
		Records: weighing.NewController(store, store, logger.Named("weighing"),
			weighing.WithVisitGap(cfg.VisitGap),
			weighing.WithStationResolver(stations),
			weighing.WithPublisher(pub),
		),
		Stations:      stations,
		DeliveryNotes: weighing.NewDeliveryNoteService(store, logger.Named("delivery_notes")),
		Messages:      weighing.NewMessageBoard(store, logger.Named("messages")),
		Scale: scale.NewClient(
			&http.Client{Timeout: cfg.ScaleRequestTimeout},
			cfg.ScaleFeedURL,
			cfg.ScaleFeedPaths,
		),
	}

	srv := httpserver.New(cfg, deps, logger.Named("http"))
	logger.Info("REST API listening",
		zap.String("addr", cfg.ListenAddr()),
		zap.Strings("stations", cfg.Stations),
		zap.Duration("visit_gap", cfg.VisitGap),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	if cfg.UseMemoryStore() {
		logger.Warn("using in-memory store; data is lost on restart")
		return db.NewMemory(), nil
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openPublisher(cfg config.Config, logger *zap.Logger) (publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured; settlement events are not published")
		return events.Nop{}, nil
	}
	pub, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		RequiredAcks: cfg.KafkaRequiredAcks,
		ClientID:     "weighbridge-api",
	}, logger.Named("events"))
	if err != nil {
		return nil, err
	}
	return pub, nil
}
