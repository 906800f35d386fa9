package main

import (
	"context"
	"time"

	"evcharge/internal/booking/events"
	"evcharge/internal/booking/handler"
	"evcharge/internal/booking/service"
	"evcharge/internal/booking/state"
	"evcharge/internal/booking/token"
	"evcharge/internal/booking/validator"
	"evcharge/internal/cache"
	"evcharge/internal/remote"
	"evcharge/pkg/app"
	"evcharge/pkg/config"
	"evcharge/pkg/kafka"
	kafka_config "evcharge/pkg/kafka/config"
	kafka_middleware "evcharge/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")

	kafkaCfg := kafka_config.Load()
	producer := newLifecycleProducer(cfg, kafkaCfg)
	publisher := events.NewKafkaPublisher(producer, cfg.Log)

	remoteClient := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, cfg.Log)
	coordinator, machine, store := initServices(cfg, remoteClient, publisher)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, remoteClient,
		handler.NewBookingHandler(coordinator, cfg.Log),
		handler.NewUserHandler(coordinator, cfg.Log),
	)

	serverApp.AddWorker(service.NewReconciler(coordinator, cfg.ReconcileInterval, cfg.Log))
	serverApp.AddWorker(newOperatorWorker(cfg, kafkaCfg, store, machine, serverApp))
	serverApp.AddCloser(producer)

	defer cfg.GracefulShutdown()
	serverApp.Run()
}

func initServices(cfg *config.Config, remoteClient *remote.Client, publisher events.Publisher) (service.Coordinator, *state.Machine, cache.Store) {
	bookingValidator := validator.NewBookingValidator(cfg.ReservationWindow(), time.Now, cfg.Log)
	machine := state.NewMachine(bookingValidator, cfg.CancelCutoff(), time.Now, cfg.Log)
	tokens := token.NewService(remoteClient, cfg.Log)
	store := cache.NewMongoStore(cfg)

	coordinator := service.NewCoordinator(store, remoteClient, machine, tokens, publisher, cfg)

	cfg.Log.Info("Booking coordinator initialized", "database", cfg.MongoDatabaseName)
	return coordinator, machine, store
}

func newLifecycleProducer(cfg *config.Config, kafkaCfg *kafka_config.Config) *kafka.Producer {
	producer, err := kafka.NewProducer(kafkaCfg, events.TopicLifecycle, events.TopicLifecycleDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create lifecycle producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}
	return producer
}

// operatorWorker runs the operator-event consumer for the application's
// lifetime. The consumer needs the cache store, which only exists after
// initServices, so it is built here rather than in the app package.
type operatorWorker struct {
	cfg      *config.Config
	consumer *kafka.Consumer
}

func newOperatorWorker(cfg *config.Config, kafkaCfg *kafka_config.Config, store cache.Store, machine *state.Machine, serverApp *app.Application) *operatorWorker {
	applier := events.NewApplier(store, machine, cfg.Log)
	consumer, err := events.NewOperatorConsumer(kafkaCfg, applier)
	if err != nil {
		cfg.Log.Fatal("Failed to create operator consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}
	serverApp.AddCloser(consumer)
	return &operatorWorker{cfg: cfg, consumer: consumer}
}

func (w *operatorWorker) Run(ctx context.Context) {
	if err := w.consumer.Start(ctx); err != nil && ctx.Err() == nil {
		w.cfg.Log.Error("Operator consumer stopped", "error", err)
	}
}
