package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/vrsc-tipbot/tipbot/internal/blockchain"
	"github.com/vrsc-tipbot/tipbot/internal/config"
	"github.com/vrsc-tipbot/tipbot/internal/discord"
	"github.com/vrsc-tipbot/tipbot/internal/http_api"
	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/internal/notificator"
	"github.com/vrsc-tipbot/tipbot/internal/reactdrop"
	"github.com/vrsc-tipbot/tipbot/internal/repository"
	"github.com/vrsc-tipbot/tipbot/internal/tipbot"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
	"github.com/vrsc-tipbot/tipbot/pkg/retry"
)

func main() {
	app := &cli.App{
		Name:  "tipbot",
		Usage: "Custodial VRSC tipping bot for Discord",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "verus-rpc-host", Aliases: []string{"r"}, Usage: "Verus daemon RPC host:port"},
			&cli.StringFlag{Name: "redis-url", Usage: "Redis URL for the shared reactdrop registry"},
			&cli.IntFlag{Name: "api-port", Usage: "Internal API port"},
			&cli.Int64Flag{Name: "withdraw-fee", Aliases: []string{"f"}, Usage: "Withdrawal fee in satoshis"},
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
	if c.IsSet("verus-rpc-host") {
		cfg.VerusRPCHost = c.String("verus-rpc-host")
	}
	if c.IsSet("redis-url") {
		cfg.RedisURL = c.String("redis-url")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("withdraw-fee") {
		cfg.WithdrawFeeSats = c.Int64("withdraw-fee")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize blockchain service
	node, err := blockchain.NewVerus(cfg.VerusRPCHost, cfg.VerusRPCUser, cfg.VerusRPCPassword, log)
	if err != nil {
		return fmt.Errorf("failed to connect to the Verus node: %v", err)
	}
	defer node.Close()

	chat, err := discord.New(cfg.DiscordBotToken, log)
	if err != nil {
		return fmt.Errorf("failed to create discord client: %v", err)
	}

	var alerter models.Alerter = notificator.LogAlerter{Logger: log}
	if cfg.TelegramBotToken != "" {
		telegram, err := notificator.NewTelegramAlerter(log, cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram alerts: %v", err)
		}
		go telegram.Start(ctx)
		alerter = telegram
	}
	dispatcher := notificator.NewDispatcher(log, db, chat, alerter)

	bot := tipbot.NewTipBot(db, node, dispatcher, log, tipbot.Options{
		WithdrawFee: tipbot.AmountPtr(models.Amount(cfg.WithdrawFeeSats)),
		AddressRetry: retry.Policy{
			Attempts:       cfg.AddressRetryAttempts,
			InitialBackoff: retry.DefaultPolicy.InitialBackoff,
			MaxBackoff:     retry.DefaultPolicy.MaxBackoff,
		},
	})

	var registry reactdrop.Registry = reactdrop.NewMemoryRegistry()
	if cfg.RedisURL != "" {
		client, err := reactdrop.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		registry = reactdrop.NewRedisRegistry(client)
		log.Info("Reactdrops are shared through redis")
	}
	drops := reactdrop.NewManager(log, chat, bot, registry)

	var apiServer models.APIServer = http_api.NewHTTPServer(bot, drops, cfg.APIPort, cfg.APIToken, log)
	go apiServer.Start()

	<-ctx.Done()
	log.Info("Shutting down")
	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to stop the HTTP server", "error", err)
	}
	// Running drops end without paying out.
	drops.Shutdown()
	return nil
}
