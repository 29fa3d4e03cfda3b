// Package main runs the marketplace fulfillment engine.
//
//	@title			Marketplace Fulfillment API
//	@version		1.0
//	@description	Order fulfillment, ratings and restaurant discovery for the food marketplace
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.email	support@example.com
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http https
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	_ "go-marketplace/docs/swagger"
	"go-marketplace/internal/fulfillment/adapters"
	"go-marketplace/internal/fulfillment/application"
	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/infrastructure"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/config"
	"go-marketplace/pkg/db"
	"go-marketplace/pkg/events"
	grpcpkg "go-marketplace/pkg/grpc"
	"go-marketplace/pkg/logger"
	"go-marketplace/pkg/rabbitmq"
	"go-marketplace/pkg/tls"
)

// restaurantStore is everything the engine needs from restaurant storage
type restaurantStore interface {
	application.RestaurantCatalog
	ports.RestaurantQuery
}

type stores struct {
	orders      ports.OrderStore
	products    application.ProductCatalog
	restaurants restaurantStore
	reviews     ports.ReviewStore
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		logger.New("marketplace", "info").Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.NewWithFormat(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting marketplace engine", zap.String("storage", cfg.Engine.StorageDriver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer st.close()

	history, err := adapters.OpenStatusHistory(cfg.Engine.HistoryPath)
	if err != nil {
		log.Fatal("failed to open status history", zap.Error(err))
	}
	defer history.Close()

	// Connect to RabbitMQ; without it notifications are only logged
	var notifier ports.Notifier = adapters.NewLogNotifier(log)
	var rabbitConn *rabbitmq.Connection
	if cfg.RabbitMQURL != "" {
		rabbitConn, err = rabbitmq.NewConnection(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("failed to connect to RabbitMQ, notifications will only be logged", zap.Error(err))
		} else {
			defer rabbitConn.Close()
			pub, err := rabbitmq.NewPublisher(rabbitConn, cfg.RabbitMQExchange, log)
			if err != nil {
				log.Warn("failed to create publisher", zap.Error(err))
			} else {
				notifier = adapters.NewRabbitMQNotifier(pub, log.Named("notifier"))
			}
		}
	}

	// Redis backs the discovery cache when configured
	var cache ports.SearchCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, discovery cache disabled", zap.Error(err))
			_ = client.Close()
		} else {
			defer client.Close()
			cache = adapters.NewRedisSearchCache(client, cfg.ServiceName+":nearby:")
		}
		pingCancel()
	}

	opts := application.DefaultOptions()
	opts.Retry.MaxAttempts = cfg.Engine.ConflictAttempts()
	opts.EnforceOpeningHours = cfg.Engine.EnforceOpeningHours
	opts.DefaultPageLimit = cfg.Engine.DefaultPageLimit
	opts.MaxPageLimit = cfg.Engine.MaxPageLimit

	fulfillment := application.NewFulfillmentService(st.orders, st.products, st.restaurants, notifier, history, log, opts)
	ratings := application.NewRatingService(st.restaurants, st.products, st.reviews, st.orders, notifier, log, opts)
	discovery := application.NewDiscoveryService(st.restaurants, cache, log, application.DiscoveryOptions{
		DefaultRadiusKm:  cfg.Engine.DefaultRadiusKm,
		DefaultPageLimit: cfg.Engine.DefaultPageLimit,
		MaxPageLimit:     cfg.Engine.MaxPageLimit,
		CacheTTL:         cfg.Engine.DiscoveryCacheTTL,
	})
	catalog := application.NewCatalogService(st.restaurants, st.products, log, opts)

	// Payment results arrive from the payment provider bridge
	if rabbitConn != nil {
		record := func(ctx context.Context, orderID string, status domain.PaymentStatus) error {
			_, err := fulfillment.UpdatePaymentStatus(ctx, orderID, status)
			return err
		}
		consumer, err := adapters.NewPaymentStatusConsumer(rabbitConn, cfg.PaymentQueue, cfg.RabbitMQExchange, record, log.Named("payments"))
		if err != nil {
			log.Warn("failed to create payment consumer", zap.Error(err))
		} else if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start payment consumer", zap.Error(err))
		} else {
			log.Info("consuming payment results", zap.String("routing_key", events.RoutingKeyPaymentResult))
		}
	}

	// Start HTTP server
	gin.SetMode(gin.ReleaseMode)
	handler := infrastructure.NewHTTPHandler(fulfillment, ratings, discovery, catalog)
	router := infrastructure.NewRouter(handler, log, cfg.HTTPTimeout)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		var err error
		if cfg.TLSEnabled {
			tlsConfig, tlsErr := tls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, "", false)
			if tlsErr != nil {
				log.Fatal("failed to load TLS config", zap.Error(tlsErr))
			}
			httpServer.TLSConfig = tlsConfig
			log.Info("HTTPS server listening on :" + cfg.HTTPPort)
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			log.Info("HTTP server listening on :" + cfg.HTTPPort)
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()
	log.Info("Swagger UI: http://localhost:" + cfg.HTTPPort + "/swagger/index.html")

	// Start gRPC server
	grpcServer := setupGRPCServer(cfg, log, fulfillment, discovery)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC", zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error", zap.Error(err))
	}

	log.Info("servers stopped")
}

func openStores(cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Engine.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			orders:      adapters.NewMemoryOrderStore(),
			products:    adapters.NewMemoryCatalog(),
			restaurants: adapters.NewMemoryRestaurants(),
			reviews:     adapters.NewMemoryReviewStore(),
			close:       func() {},
		}, nil
	}

	conn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected to database")

	restaurants := adapters.NewPostgresRestaurantRepository(conn)
	products := adapters.NewPostgresProductRepository(conn)
	orders := adapters.NewPostgresOrderRepository(conn)
	reviews := adapters.NewPostgresReviewRepository(conn)

	if err := db.Migrate(restaurants, products, orders, reviews); err != nil {
		_ = db.Close(conn)
		return nil, err
	}

	return &stores{
		orders:      orders,
		products:    products,
		restaurants: restaurants,
		reviews:     reviews,
		close: func() {
			if err := db.Close(conn); err != nil {
				log.Error("failed to close database", zap.Error(err))
			}
		},
	}, nil
}

func setupGRPCServer(
	cfg *config.Config,
	log *logger.Logger,
	fulfillment *application.FulfillmentService,
	discovery *application.DiscoveryService,
) *grpc.Server {
	var opts []grpc.ServerOption

	opts = append(opts, grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.GRPCTimeout)))

	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := tls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile, true)
		if err != nil {
			log.Fatal("failed to load TLS config", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		log.Info("gRPC mTLS enabled")
	}

	server := grpc.NewServer(opts...)
	infrastructure.RegisterFulfillmentServer(server, infrastructure.NewGRPCServer(fulfillment, discovery))

	return server
}
