package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	availabilityapp "github.com/dog52841/Rentify-sub001/internal/app/handlers/availability"
	bookingapp "github.com/dog52841/Rentify-sub001/internal/app/handlers/booking"
	paymentapp "github.com/dog52841/Rentify-sub001/internal/app/handlers/payment"
	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
	appoutbox "github.com/dog52841/Rentify-sub001/internal/app/outbox"
	"github.com/dog52841/Rentify-sub001/internal/app/policies"
	"github.com/dog52841/Rentify-sub001/internal/app/queries"
	"github.com/dog52841/Rentify-sub001/internal/app/schedule"
	"github.com/dog52841/Rentify-sub001/internal/app/uow"
	domainlisting "github.com/dog52841/Rentify-sub001/internal/domain/listing"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/money"
	"github.com/dog52841/Rentify-sub001/internal/infra/broker/kafka"
	"github.com/dog52841/Rentify-sub001/internal/infra/config"
	mongodb "github.com/dog52841/Rentify-sub001/internal/infra/db/mongo"
	ginserver "github.com/dog52841/Rentify-sub001/internal/infra/http/gin"
	"github.com/dog52841/Rentify-sub001/internal/infra/inbox"
	"github.com/dog52841/Rentify-sub001/internal/infra/notify"
	"github.com/dog52841/Rentify-sub001/internal/infra/obs"
	outboxinfra "github.com/dog52841/Rentify-sub001/internal/infra/outbox"
	"github.com/dog52841/Rentify-sub001/internal/infra/payments"
	"github.com/dog52841/Rentify-sub001/internal/infra/storage/memory"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if cfg.ListingFixtures != "" {
		if err := loadListingFixtures(ctx, app.uowFactory, cfg.ListingFixtures, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingFixtures)
		}
	}

	go app.worker.Run(ctx)
	go app.sweeper.Run(ctx)
	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, notify.Topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "provider", cfg.PaymentProvider)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	uowFactory uow.UoWFactory
	worker     *outboxinfra.Worker
	sweeper    *schedule.CompletionSweeper
	consumer   *kafka.Consumer
	ready      func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		uowFactory  uow.UoWFactory
		outboxStore appoutbox.Outbox
		eventStore  outboxinfra.EventStore
		idStore     middleware.IdempotencyStore
		ready       = func() error { return nil }
		inboxDedup  notify.Dedup
	)

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		uowFactory = mongodb.NewFactory(client.DB)
		store := outboxinfra.NewStore(client.DB)
		outboxStore = store
		eventStore = store
		idStore = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		inboxDedup = inbox.NewStore(client.DB, "rentify-notify")
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		uowFactory = memory.NewFactory()
		store := outboxinfra.NewMemoryStore()
		outboxStore = store
		eventStore = store
		idStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	var provider policies.PaymentProvider
	switch cfg.PaymentProvider {
	case config.ProviderMercadoPago:
		mp, err := payments.NewMercadoPagoProvider(cfg.MPAccessToken)
		if err != nil {
			return application{}, err
		}
		provider = mp
	default:
		provider = payments.NewMemoryProvider()
	}

	var producer outboxinfra.Producer
	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("kafka producer: %w", err)
		}
		producer = p
		dispatcher := &notify.Dispatcher{Logger: logger, Dedup: inboxDedup}
		c, err := kafka.NewConsumer(cfg.KafkaBrokers, "rentify-notify", nil, dispatcher)
		if err != nil {
			return application{}, fmt.Errorf("kafka consumer: %w", err)
		}
		consumer = c
	} else {
		producer = logProducer{logger: logger}
	}

	rates := bookingapp.FeeRates{RenterBps: cfg.RenterFeeBps, ListerBps: cfg.ListerFeeBps}
	encoder := appoutbox.JSONEventEncoder{}
	cmdLocks := middleware.NewKeyedMutex()

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory: uowFactory,
		Rates:      rates,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.DecideBookingCommand{}.Key(), &bookingapp.DecideBookingHandler{
		Outbox:  outboxStore,
		Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Outbox:  outboxStore,
		Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{
		Outbox:  outboxStore,
		Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, paymentapp.InitiatePaymentCommand{}.Key(), &paymentapp.InitiatePaymentHandler{
		Provider: provider,
		Outbox:   outboxStore,
		Encoder:  encoder,
		Timeout:  cfg.ProviderCallTimeout,
	})
	commands.RegisterHandler(commandBus, paymentapp.CaptureOrderCommand{}.Key(), &paymentapp.CaptureOrderHandler{
		Provider: provider,
		Outbox:   outboxStore,
		Encoder:  encoder,
		Locks:    cmdLocks,
		Timeout:  cfg.CaptureTimeout,
	})
	commands.RegisterHandler(commandBus, availabilityapp.MutateDatesCommand{}.Key(), &availabilityapp.MutateDatesHandler{
		Outbox:  outboxStore,
		Encoder: encoder,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListRenterBookingsQuery{}.Key(), &bookingapp.ListRenterBookingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, availabilityapp.GetUnavailableDatesQuery{}.Key(), &availabilityapp.GetUnavailableDatesHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Serialize(cmdLocks),
		middleware.Validation(selfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	worker := &outboxinfra.Worker{
		Store:       eventStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	sweeper := &schedule.CompletionSweeper{
		Bus:        commandBusWithMiddleware,
		UoWFactory: uowFactory,
		Interval:   cfg.CompletionInterval,
		Logger:     logger,
	}

	return application{
		handlers: ginserver.Handlers{
			Booking:      ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
			Availability: ginserver.AvailabilityHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
			Payment:      ginserver.PaymentHandler{Commands: commandBusWithMiddleware},
		},
		uowFactory: uowFactory,
		worker:     worker,
		sweeper:    sweeper,
		consumer:   consumer,
		ready:      ready,
	}, nil
}

// selfValidator runs the command's own Validate method when it has one.
type selfValidator struct{}

func (selfValidator) Validate(ctx context.Context, message any) error {
	if v, ok := message.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// logProducer stands in for Kafka in the single-process profile: the event
// feed is still drained and visible in the logs.
type logProducer struct {
	logger *slog.Logger
}

func (p logProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.logger.Info("event published", "topic", topic, "key", key, "payload", string(payload))
	return nil
}

type listingFixture struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Title          string `json:"title"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Currency       string `json:"currency"`
}

func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer unit.Rollback(ctx)
	for _, fx := range fixtures {
		rate, err := money.New(fx.DailyRateCents, fx.Currency)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		lst, err := domainlisting.New(domainlisting.ListingID(fx.ID), domainlisting.OwnerID(fx.OwnerID), fx.Title, rate)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := unit.Listings().Save(ctx, lst); err != nil {
			return err
		}
		logger.Info("listing fixture loaded", "listing_id", fx.ID)
	}
	return unit.Commit(ctx)
}
