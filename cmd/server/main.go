package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"duck-presale.backend/internal/config"
	"duck-presale.backend/internal/infrastructure/blockchain"
	postgresds "duck-presale.backend/internal/infrastructure/datasources/postgres"
	gatewayinfra "duck-presale.backend/internal/infrastructure/gateway"
	"duck-presale.backend/internal/infrastructure/jobs"
	"duck-presale.backend/internal/infrastructure/repositories"
	"duck-presale.backend/internal/interfaces/http/handlers"
	"duck-presale.backend/internal/interfaces/http/middleware"
	"duck-presale.backend/internal/usecases"
	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = postgresds.NewConnection
	runServer  = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB   = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	log.Println("✅ Connected to PostgreSQL via GORM")

	startDate := cfg.Presale.StartTime()
	if startDate.IsZero() {
		return fmt.Errorf("PRESALE_START_DATE is required (YYYY-MM-DD)")
	}

	// Chain adapter and purchase signer
	chain, err := blockchain.NewSolanaClient(cfg.Solana.RPCURL, cfg.Solana.ProgramID, cfg.Solana.AdminKey, cfg.Solana.ConfirmTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize solana client: %w", err)
	}
	signer, err := blockchain.NewSolanaSigner(cfg.Solana.AuthorizedSigner, cfg.Solana.ProgramID, cfg.Solana.USDTMint, cfg.Solana.USDCMint)
	if err != nil {
		return fmt.Errorf("failed to initialize purchase signer: %w", err)
	}
	nonces := blockchain.NewNonceService(chain)

	// Payment gateway
	gateway := gatewayinfra.NewNOWPaymentsClient(cfg.NOWPayments.APIKey, cfg.NOWPayments.APIURL)

	// Initialize repositories
	paymentRepo := repositories.NewPaymentRepository(db)
	investorRepo := repositories.NewInvestorRepository(db)
	uow := repositories.NewUnitOfWork(db)

	challenges, err := redis.NewChallengeStore(usecases.BindChallengeTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize challenge store: %w", err)
	}

	// Initialize usecases
	settlementUsecase := usecases.NewSettlementUsecase(paymentRepo, investorRepo, uow, chain, cfg.NOWPayments.IPNSecret)
	invoiceUsecase := usecases.NewInvoiceUsecase(paymentRepo, investorRepo, gateway, startDate, usecases.InvoiceLimits{
		MinUSDAmount:      cfg.Presale.MinUSDAmount,
		MaxInvoicesPerDay: cfg.Presale.MaxInvoicesPerDay,
		MaxActiveInvoices: cfg.Presale.MaxActiveInvoices,
	}, cfg.NOWPayments.CallbackBaseURL)
	onchainUsecase := usecases.NewOnchainUsecase(chain, investorRepo, paymentRepo, challenges, blockchain.VerifyEVMSignature, startDate)
	authorizationUsecase := usecases.NewAuthorizationUsecase(chain, signer, nonces, startDate)
	investorUsecase := usecases.NewInvestorUsecase(investorRepo, startDate)

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(invoiceUsecase)
	webhookHandler := handlers.NewWebhookHandler(settlementUsecase)
	onchainHandler := handlers.NewOnchainHandler(onchainUsecase)
	investorHandler := handlers.NewInvestorHandler(investorUsecase)
	authorizationHandler := handlers.NewAuthorizationHandler(authorizationUsecase)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rolloverJob := jobs.NewDailyRolloverJob(chain, startDate)
	go rolloverJob.Start(ctx)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		paymentHandler:       paymentHandler,
		webhookHandler:       webhookHandler,
		onchainHandler:       onchainHandler,
		investorHandler:      investorHandler,
		authorizationHandler: authorizationHandler,
	})

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		rolloverJob.Stop()
		cancel()
	}()

	// Start server
	log.Printf("🚀 Presale backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1/presale", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
