package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/kevin07696/card-gateway/internal/adapters/dynamo"
	"github.com/kevin07696/card-gateway/internal/adapters/kafka"
	"github.com/kevin07696/card-gateway/internal/adapters/lambda"
	"github.com/kevin07696/card-gateway/internal/adapters/processor"
	bincache "github.com/kevin07696/card-gateway/internal/adapters/redis"
	"github.com/kevin07696/card-gateway/internal/adapters/secrets"
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	transactionHandler "github.com/kevin07696/card-gateway/internal/handlers/transaction"
	"github.com/kevin07696/card-gateway/internal/services/gateway"
	"github.com/kevin07696/card-gateway/internal/services/transaction"
	"github.com/kevin07696/card-gateway/pkg/crypto"
	pkghttp "github.com/kevin07696/card-gateway/pkg/http"
	"github.com/kevin07696/card-gateway/pkg/middleware"
	"github.com/kevin07696/card-gateway/pkg/observability"
	"github.com/kevin07696/card-gateway/pkg/resilience"
	"github.com/kevin07696/card-gateway/pkg/security"
	"github.com/kevin07696/card-gateway/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	appLogger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	logger := appLogger.Zap()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting card gateway",
		zap.String("version", "0.1.0"),
		zap.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := initDependencies(ctx, cfg, appLogger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	timeouts := resilience.DefaultTimeoutConfig()
	service := transaction.NewService(transaction.Dependencies{
		Tokens:        deps.tokens,
		Merchants:     deps.merchants,
		Rules:         deps.rules,
		Invoker:       deps.invoker,
		Repo:          deps.transactions,
		ChargeMeta:    deps.charges,
		FailedCharges: deps.charges,
		BinInfo:       deps.bins,
		BinStore:      deps.bins,
		Attempts:      deps.attempts,
		Registry:      deps.registry,
		Timeouts:      timeouts,
	}, cfg, appLogger)

	mux := http.NewServeMux()
	transactionHandler.NewHandler(service, logger).RegisterRoutes(mux)

	middlewares := []func(http.Handler) http.Handler{
		middleware.Recover(logger),
		middleware.AccessLog(logger),
		middleware.SecurityHeaders(cfg.Logger.Development),
	}
	var rateLimiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
		middlewares = append(middlewares, rateLimiter.Middleware)
	}
	middlewares = append(middlewares, middleware.Timeout(timeouts, logger))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           middleware.Chain(mux, middlewares...),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), deps.health, logger)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Shutdown runs in reverse: the HTTP server stops first, the clients close last.
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	for name, closer := range deps.closers {
		sm.RegisterNoErr(name, closer)
	}
	sm.RegisterWait("bin corrections", service.Persister().Wait)
	sm.Register("metrics server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})
	if rateLimiter != nil {
		sm.RegisterNoErr("rate limiter", rateLimiter.Shutdown)
	}
	sm.RegisterHTTPServer("http server", httpServer)

	sm.WaitForShutdown(context.Background())
	logger.Info("Card gateway stopped")
}

func initLogger(cfg *config.Config) (*security.ZapLoggerAdapter, error) {
	if cfg.Logger.Development {
		return security.NewZapLoggerDevelopment()
	}
	return security.NewZapLoggerProduction(cfg.Logger.Level)
}

// dependencies are the adapters behind the transaction service ports
type dependencies struct {
	tokens       ports.TokenFetcher
	merchants    ports.MerchantFetcher
	rules        ports.RuleEngine
	invoker      ports.ProcessorInvoker
	transactions ports.TransactionRepository
	charges      *dynamo.ChargeRepository
	bins         bincache.BinSource
	attempts     ports.AttemptPublisher
	registry     *gateway.Registry
	health       *observability.HealthChecker
	closers      map[string]func()
}

func initDependencies(ctx context.Context, cfg *config.Config, appLogger *security.ZapLoggerAdapter) (*dependencies, error) {
	logger := appLogger.Zap()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	secretReader, err := secrets.NewReader(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret reader: %w", err)
	}
	publicKey, err := secrets.LoadPublicKey(ctx, secretReader, cfg.Secrets.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load aurus encryption key: %w", err)
	}
	encryptor, err := crypto.NewChunkEncryptor(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aurus encryptor: %w", err)
	}
	if fp, err := crypto.Fingerprint(publicKey); err == nil {
		logger.Info("Loaded aurus encryption key",
			zap.String("backend", cfg.Secrets.Backend),
			zap.String("fingerprint", fp),
		)
	}

	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWS.Endpoint)
	lambdaClient := lambda.NewClient(awsCfg, cfg.AWS.Endpoint)

	deps := &dependencies{
		tokens:       dynamo.NewTokenRepository(dynamoClient, cfg.AWS.TokenTable, logger),
		merchants:    dynamo.NewMerchantRepository(dynamoClient, cfg.AWS.MerchantTable, cfg.AWS.ProcessorTable, logger),
		rules:        lambda.NewRuleEngine(lambdaClient, cfg.AWS.RuleEngineFunction, logger),
		transactions: dynamo.NewTransactionRepository(dynamoClient, cfg.AWS.TransactionTable, cfg.AWS.TicketNumberIndex, logger),
		charges:      dynamo.NewChargeRepository(dynamoClient, cfg.AWS.ChargeMetadataTable, cfg.AWS.FailedChargeTable, logger),
		registry: gateway.NewRegistry(
			gateway.NewAurus(encryptor),
			gateway.NewTransbank(),
			gateway.NewKushkiAcq(),
			gateway.NewSandbox(),
		),
		closers: make(map[string]func()),
	}

	httpInvoker := processor.NewHTTPInvoker(
		pkghttp.NewHTTPClient(pkghttp.AcquirerClientConfig(), cfg.Processor.Timeout),
		map[domain.ProcessorType]string{
			domain.ProcessorTypeAurus:     cfg.Processor.AurusURL,
			domain.ProcessorTypeTransbank: cfg.Processor.TransbankURL,
		},
		processor.NewCircuitBreaker(processor.DefaultCircuitBreakerConfig()),
		logger,
	)
	deps.invoker = processor.NewRouter().
		Register(domain.ProcessorTypeAurus, httpInvoker).
		Register(domain.ProcessorTypeTransbank, httpInvoker).
		Register(domain.ProcessorTypeKushki, lambda.NewKushkiInvoker(lambdaClient, cfg.AWS.KushkiAcqFunction, logger)).
		Register(domain.ProcessorTypeSandbox, processor.NewSandboxInvoker())

	checks := map[string]observability.Pinger{
		"dynamodb": observability.PingFunc(func(ctx context.Context) error {
			return dynamo.Ping(ctx, dynamoClient, cfg.AWS.TransactionTable)
		}),
	}

	binRepo := dynamo.NewBinRepository(dynamoClient, cfg.AWS.BinTable, logger)
	deps.bins = binRepo
	if cfg.Redis.Enabled {
		rdb, err := bincache.Connect(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, serving bin info from DynamoDB", zap.Error(err))
		} else {
			deps.bins = bincache.NewBinCache(rdb, binRepo, cfg.Redis.TTL, logger)
			checks["redis"] = observability.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			})
			deps.closers["redis"] = func() { _ = rdb.Close() }
		}
	}

	if cfg.Kafka.Enabled {
		client, err := kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Topic:    cfg.Kafka.AttemptTopic,
		})
		if err != nil {
			return nil, err
		}
		publisher := kafka.NewAttemptPublisher(client, cfg.Kafka.AttemptTopic, logger)
		deps.attempts = publisher
		checks["kafka"] = observability.PingFunc(publisher.Ping)
		deps.closers["kafka"] = publisher.Close
	} else {
		deps.attempts = kafka.NewNopPublisher(logger)
	}

	deps.health = observability.NewHealthChecker(checks)
	return deps, nil
}
