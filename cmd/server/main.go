package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idverse/contracts/registry"
	"idverse/internal/audit"
	benefithandler "idverse/internal/benefit/handler"
	benefitservice "idverse/internal/benefit/service"
	benefitstore "idverse/internal/benefit/store"
	"idverse/internal/chain"
	chainmetrics "idverse/internal/chain/metrics"
	"idverse/internal/challenge"
	credhandler "idverse/internal/credential/handler"
	"idverse/internal/credential/keys"
	credmetrics "idverse/internal/credential/metrics"
	credservice "idverse/internal/credential/service"
	credstore "idverse/internal/credential/store"
	"idverse/internal/docstore"
	"idverse/internal/jwt_token"
	"idverse/internal/platform/config"
	"idverse/internal/platform/database"
	"idverse/internal/platform/httpserver"
	"idverse/internal/platform/kafka"
	"idverse/internal/platform/kafka/producer"
	"idverse/internal/platform/logger"
	platformredis "idverse/internal/platform/redis"
	httptransport "idverse/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing idverse",
		"addr", cfg.Addr,
		"chain_mode", cfg.ChainMode,
		"issuer_did", cfg.IssuerDID,
		"sign_mode", cfg.SignMode,
	)

	ctx := context.Background()

	// Registry node: in-process simulation for mock mode, JSON-RPC for real.
	var node registry.Node
	if cfg.ChainMode == "real" {
		rpcNode, err := chain.DialNode(ctx, cfg.ChainRPCURL)
		if err != nil {
			log.Error("failed to connect to chain node", "error", err, "url", cfg.ChainRPCURL)
			os.Exit(1)
		}
		defer rpcNode.Close()
		node = rpcNode
	} else {
		node = registry.NewSimulatedNode()
	}
	chainClient := chain.NewClient(node, log,
		chain.WithConfirmTimeout(cfg.ConfirmTimeout),
		chain.WithMetrics(chainmetrics.New()),
	)

	// Document store: IPFS when an API endpoint is configured.
	var documents credservice.Documents = docstore.NewInMemoryStore()
	if cfg.IPFSAPIURL != "" {
		documents = docstore.NewIPFSStore(cfg.IPFSAPIURL)
		log.Info("using IPFS document store", "api_url", cfg.IPFSAPIURL)
	}

	// Challenge store: Redis when configured, otherwise in-memory.
	var challengeStore challenge.Store = challenge.NewInMemoryStore()
	redisClient, err := platformredis.New(config.RedisFromEnv())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		challengeStore = challenge.NewRedisStore(redisClient.Client)
		log.Info("using redis challenge store")
	}
	challenges := challenge.NewManager(challengeStore, cfg.ChallengeTTL, log)

	// Persistence: Postgres when configured, otherwise in-memory.
	var credentials credstore.Store = credstore.NewInMemoryStore()
	var applications benefitstore.Store = benefitstore.NewInMemoryStore()
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		credentials = credstore.NewPostgres(pool.DB())
		applications = benefitstore.NewPostgres(pool.DB())
		log.Info("using postgres stores")
	}

	// Audit trail: Kafka when brokers are configured, otherwise noop.
	var auditSink audit.Sink = audit.NoopSink{}
	if cfg.KafkaBrokers != "" {
		if err := kafka.EnsureTopic(ctx, cfg.KafkaBrokers, audit.DefaultTopic, 3, 1); err != nil {
			log.Error("failed to ensure audit topic", "error", err)
			os.Exit(1)
		}
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.KafkaBrokers
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditSink = audit.NewKafkaSink(kafkaProducer, audit.DefaultTopic)
		log.Info("audit trail enabled", "topic", audit.DefaultTopic)
	}
	auditor := audit.NewPublisher(auditSink,
		audit.WithAsyncBuffer(1024),
		audit.WithLogger(log),
	)
	defer auditor.Close()

	signer, err := keys.NewSigner(cfg.SignMode, cfg.IssuerKeyHex)
	if err != nil {
		log.Error("failed to build issuer signer", "error", err)
		os.Exit(1)
	}

	credentialService, err := credservice.New(credentials, chainClient, documents, challenges, signer, cfg.IssuerDID,
		credservice.WithLogger(log),
		credservice.WithAuditor(auditor),
		credservice.WithMetrics(credmetrics.New()),
	)
	if err != nil {
		log.Error("failed to build credential service", "error", err)
		os.Exit(1)
	}
	if err := credentialService.EnsureIssuerRegistered(ctx); err != nil {
		log.Error("failed to register issuer", "error", err, "issuer_did", cfg.IssuerDID)
		os.Exit(1)
	}

	benefitService, err := benefitservice.New(applications, chainClient, credentialService,
		benefitservice.WithLogger(log),
		benefitservice.WithAuditor(auditor),
	)
	if err != nil {
		log.Error("failed to build benefit service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "idverse", "idverse-api")

	router := httptransport.NewRouter(httptransport.Dependencies{
		Credentials: credhandler.New(credentialService, challenges, log),
		Benefits:    benefithandler.New(benefitService, log),
		JWT:         jwttoken.NewJWTServiceAdapter(jwtService),
		Logger:      log,
		Healthy: func() error {
			hctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if pool != nil {
				if err := pool.Health(hctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				if err := redisClient.Health(hctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
