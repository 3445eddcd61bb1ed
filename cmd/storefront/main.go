package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/toxic-toad/aquaventure/internal/cart"
	"github.com/toxic-toad/aquaventure/internal/catalog"
	"github.com/toxic-toad/aquaventure/internal/checkout"
	"github.com/toxic-toad/aquaventure/internal/config"
	h "github.com/toxic-toad/aquaventure/internal/http"
	"github.com/toxic-toad/aquaventure/internal/identity"
	"github.com/toxic-toad/aquaventure/internal/logger"
	"github.com/toxic-toad/aquaventure/internal/orders"
	"github.com/toxic-toad/aquaventure/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "storefront",
	}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped with error")
	}
	log.Info().Msg("storefront stopped")
}

// app holds the connections opened during startup so they can be closed
// in reverse order on shutdown.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	mongoDB *mongo.Database
	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.TraceContext{})

	a := &app{cfg: cfg, log: log}
	defer a.close()

	products, err := a.loadCatalog(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("products", products.Len()).Msg("catalog loaded")

	kv, err := a.cartStorage(ctx)
	if err != nil {
		return err
	}

	carts := cart.NewSessions(kv, cart.SessionsConfig{
		StorageKey:      cfg.CartStorageKey,
		IdleTTL:         cfg.CartIdleTTL,
		CleanupInterval: cfg.CartCleanupInterval,
	}, log)
	a.onClose(carts.Close)

	accountRepo, err := a.accountRepository(ctx)
	if err != nil {
		return err
	}
	accounts := identity.NewService(accountRepo, kv, identity.Config{
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, log)

	var (
		sinks   []checkout.OrderSink
		history h.OrderHistory
		archive *orders.Repository
	)
	if cfg.ArchiveEnabled() {
		archive, err = a.orderArchive()
		if err != nil {
			return err
		}
		history = archive
		// With the consumer running, the archive is fed from the topic.
		if !cfg.OrdersConsumerEnabled {
			sinks = append(sinks, archive)
		}
	}
	if cfg.PublisherEnabled() {
		publisher := orders.NewPublisher(orders.PublisherConfig{Topic: orders.TopicOrdersPlaced}, log, cfg.KafkaBrokers...)
		a.onClose(func() {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close order publisher")
			}
		})
		sinks = append(sinks, publisher)
	}

	router := h.NewRouter(h.Deps{
		Catalog:            products,
		Carts:              carts,
		Checkout:           checkout.NewOrchestrator(log, sinks...),
		Accounts:           accounts,
		Orders:             history,
		Log:                log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SecureCookies:      cfg.Env == "production",
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		log.Info().Str("port", cfg.GRPCPort).Msg("gRPC health server starting")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if cfg.OrdersConsumerEnabled {
		consumer := orders.NewConsumer(archive, cfg.KafkaGroupID, log, cfg.KafkaBrokers...)
		g.Go(func() error {
			defer consumer.Close()
			consumer.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *app) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if a.cfg.CatalogFile != "" {
		a.log.Info().Str("path", a.cfg.CatalogFile).Msg("loading catalog from file")
		return catalog.LoadFile(a.cfg.CatalogFile)
	}

	repo, err := catalog.NewRepository(a.cfg.CatalogDBPath)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	if err := repo.RunMigrations(a.cfg.CatalogMigrationsPath); err != nil {
		return nil, err
	}
	return catalog.Load(ctx, repo)
}

func (a *app) cartStorage(ctx context.Context) (storage.KV, error) {
	switch a.cfg.CartStorage {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		a.onClose(func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		a.log.Info().Str("addr", a.cfg.RedisAddr).Msg("cart storage: redis")
		return storage.NewRedisKV(client, a.cfg.CartTTL), nil

	case config.StorageMongo:
		db, err := a.mongo(ctx)
		if err != nil {
			return nil, err
		}
		kv := storage.NewMongoKV(db, a.cfg.CartTTL)
		if err := kv.CreateIndexes(ctx); err != nil {
			return nil, err
		}
		a.log.Info().Str("db", a.cfg.MongoDBName).Msg("cart storage: mongo")
		return kv, nil

	default:
		a.log.Warn().Msg("cart storage: memory, carts are lost on restart")
		return storage.NewMemoryKV(), nil
	}
}

func (a *app) accountRepository(ctx context.Context) (identity.AccountRepository, error) {
	if a.cfg.AccountStore != config.StorageMongo {
		return identity.NewMemoryRepository(), nil
	}
	db, err := a.mongo(ctx)
	if err != nil {
		return nil, err
	}
	repo := identity.NewMongoRepository(db)
	if err := repo.CreateIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *app) orderArchive() (*orders.Repository, error) {
	cred := &orders.Credentials{
		Host:              a.cfg.DBHost,
		Port:              a.cfg.DBPort,
		User:              a.cfg.DBUser,
		Password:          a.cfg.DBPassword,
		DBName:            a.cfg.DBName,
		MigrationsDirPath: a.cfg.OrdersMigrationsPath,
	}
	repo, err := orders.NewRepository(cred)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = repo.Close() })

	if err := repo.RunMigrations(cred); err != nil {
		return nil, err
	}
	a.log.Info().Str("host", a.cfg.DBHost).Msg("order archive connected")
	return repo, nil
}

// mongo connects once and shares the database between cart storage and
// accounts.
func (a *app) mongo(ctx context.Context) (*mongo.Database, error) {
	if a.mongoDB != nil {
		return a.mongoDB, nil
	}
	db, err := storage.ConnectMongoDB(ctx, a.cfg.MongoURI, a.cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(ctx)
	})
	a.mongoDB = db
	return db, nil
}
