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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/handler"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/phone-auth-api/services/account-service/internal/usecase"
	"github.com/vasapolrittideah/phone-auth-api/shared/auth"
	"github.com/vasapolrittideah/phone-auth-api/shared/discovery"
	"github.com/vasapolrittideah/phone-auth-api/shared/mailer"
	"github.com/vasapolrittideah/phone-auth-api/shared/notify"
	"github.com/vasapolrittideah/phone-auth-api/shared/sms"
	"github.com/vasapolrittideah/phone-auth-api/shared/utilities"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, relying on existing environment")
	}

	cfg := config.NewAccountServiceConfig(&logger)
	logger = newLogger(cfg.Log, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accountRepo, ping, closeStorage := newAccountRepository(ctx, cfg, &logger)
	defer closeStorage()

	jwtOpts := []auth.Option{}
	if cfg.Token.ExpiresIn > 0 {
		jwtOpts = append(jwtOpts, auth.WithExpirationRequired())
	}
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer, jwtOpts...)

	sessionUsecase := usecase.NewSessionUsecase(accountRepo, jwtAuth, cfg.Token, &logger)
	otpUsecase := usecase.NewOTPUsecase(accountRepo, time.Now)
	accountUsecase := usecase.NewAccountUsecase(
		accountRepo,
		sessionUsecase,
		otpUsecase,
		newNotifier(cfg.Delivery, &logger),
		cfg.Delivery,
		&logger,
	)

	router, err := handler.NewRouter(handler.RouterParams{
		AccountUsecase: accountUsecase,
		SessionUsecase: sessionUsecase,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Ping:           ping,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http router")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(utilities.NewLoggingInterceptor(&logger)))
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.ServiceName)

	grpcListener, err := net.Listen("tcp", cfg.GRPC.Address())
	if err != nil {
		logger.Fatal().Err(err).Str("address", cfg.GRPC.Address()).Msg("failed to listen for grpc")
	}

	serveErr := make(chan error, 2)

	go func() {
		logger.Info().Str("address", cfg.HTTP.Address()).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		logger.Info().Str("address", cfg.GRPC.Address()).Msg("grpc health server listening")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	deregister := registerWithConsul(cfg, &logger)
	defer deregister()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		logger.Error().Err(err).Msg("server stopped unexpectedly")
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful http shutdown failed")
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	logger.Info().Msg("account service stopped")
}

func newLogger(cfg config.LogConfig, serviceName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Str("service", serviceName).Logger()
}

// newAccountRepository returns the configured repository, a readiness probe and a cleanup function.
func newAccountRepository(
	ctx context.Context,
	cfg *config.AccountServiceConfig,
	logger *zerolog.Logger,
) (repository.AccountRepository, handler.Pinger, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn().Msg("using in-memory account storage, data is lost on restart")
		return repository.NewAccountMemoryRepository(), nil, func() {}
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create mongo client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.OperationTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}

	db := client.Database(cfg.Mongo.Database)
	accountRepo := repository.NewAccountMongoRepository(ctx, logger, db, cfg.Mongo.OperationTimeout)

	ping := func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.Mongo.OperationTimeout)
		defer cancel()

		return client.Ping(ctx, readpref.Primary())
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.OperationTimeout)
		defer cancel()

		if err := client.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}

	return accountRepo, ping, closeFn
}

func newNotifier(cfg config.DeliveryConfig, logger *zerolog.Logger) usecase.Notifier {
	switch cfg.Channel {
	case config.DeliveryChannelInfobip:
		return sms.NewInfobipSender(logger)
	case config.DeliveryChannelSMTP:
		return mailer.NewMailer(logger)
	default:
		logger.Warn().Msg("using log-only otp delivery, no sms is sent")
		return notify.NewLogNotifier(logger)
	}
}

// registerWithConsul announces the service when CONSUL_ADDRESS is set and returns the matching cleanup.
func registerWithConsul(cfg *config.AccountServiceConfig, logger *zerolog.Logger) func() {
	if cfg.Consul.Address == "" {
		return func() {}
	}

	registry, err := discovery.NewConsulRegistry(cfg.Consul.Address, logger)
	if err != nil {
		logger.Error().Err(err).Msg("consul registration skipped")
		return func() {}
	}

	address := cfg.Consul.ServiceAddress
	if address == "" {
		address = cfg.HTTP.Host
	}

	svc := discovery.ServiceRegistration{
		Name:     cfg.ServiceName,
		Address:  address,
		HTTPPort: cfg.HTTP.Port,
		GRPCPort: cfg.GRPC.Port,
		Tags:     []string{"http", "grpc-health"},
	}

	if err := registry.Register(svc); err != nil {
		logger.Error().Err(err).Msg("consul registration failed")
		return func() {}
	}

	return func() {
		if err := registry.Deregister(svc); err != nil {
			logger.Error().Err(err).Msg("consul deregistration failed")
		}
	}
}
