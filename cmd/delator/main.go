package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aircrouching/delator/internal/config"
	"github.com/aircrouching/delator/internal/http_api"
	"github.com/aircrouching/delator/internal/ledger"
	"github.com/aircrouching/delator/internal/payments"
	"github.com/aircrouching/delator/internal/reporter"
	"github.com/aircrouching/delator/internal/repository"
	"github.com/aircrouching/delator/internal/telegram"
	"github.com/aircrouching/delator/pkg/logger"
)

const (
	// promoSweepInterval is how often expired promo codes are removed.
	promoSweepInterval = 6 * time.Hour
)

func main() {
	app := &cli.App{
		Name:  "delator",
		Usage: "Delator is a mass-report bot with a subscription ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "sessions-dir", Aliases: []string{"s"}, Usage: "Directory with account session bundles"},
			&cli.StringFlag{Name: "report-gateway-url", Aliases: []string{"g"}, Usage: "MTProto session gateway URL"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "Status API port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("sessions-dir") {
		cfg.SessionsDir = c.String("sessions-dir")
	}
	if c.IsSet("report-gateway-url") {
		cfg.ReportGatewayURL = c.String("report-gateway-url")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	repo, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, cfg.AdminIDs, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer repo.Close()

	// Initialize payment oracle. A bad token is a startup precondition
	// failure, not something to retry.
	oracle := payments.NewCryptoPay(cfg.CryptoPayURL, cfg.CryptoPayToken, cfg.CryptoPayAsset, log)
	if err := oracle.CheckToken(ctx); err != nil {
		return fmt.Errorf("failed to initialize CryptoPay: %v", err)
	}
	log.Info("CryptoPay initialized successfully")

	// Initialize account pool
	dialer := reporter.NewGatewayDialer(cfg.ReportGatewayURL, log)
	pool := reporter.NewPool(dialer, cfg.SessionsDir, cfg.ReportTimeout, log)
	if _, err := pool.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize account pool: %v", err)
	}
	defer pool.Close()

	// Initialize ledger and payment reconciliation
	ledgerService := ledger.NewLedger(repo, log)
	reconciler := payments.NewReconciler(oracle, ledgerService, nil, log)

	// Initialize Telegram bot
	botApp, err := telegram.NewBot(cfg.TelegramBotToken, ledgerService, pool, oracle, reconciler, log)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %v", err)
	}
	reconciler.SetNotifier(botApp.Notify)

	// Initialize API server
	apiServer := http_api.NewHTTPServer(ledgerService, pool, reconciler, cfg.APIPort, log)

	go apiServer.Start()
	go reconciler.Run(ctx)

	// Periodically remove expired promo codes
	go func() {
		ticker := time.NewTicker(promoSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("Sweeping expired promo codes")
				ledgerService.SweepExpired()
			}
		}
	}()

	// Start the bot (blocks until the context is canceled)
	botApp.Start(ctx)

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down API server: ", err)
	}
	return nil
}
