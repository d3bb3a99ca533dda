// Package main is the entry point for the bank wealth CRM MCP server.
// It exposes customer search, wealth product search and suitability
// analysis tools over a local stdio channel or one of two HTTP-based
// streaming transports.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xmcrm/wealth-mcp/internal/config"
	"github.com/xmcrm/wealth-mcp/internal/database"
	"github.com/xmcrm/wealth-mcp/internal/modules/customers"
	"github.com/xmcrm/wealth-mcp/internal/modules/products"
	"github.com/xmcrm/wealth-mcp/internal/modules/suitability"
	"github.com/xmcrm/wealth-mcp/internal/reliability"
	"github.com/xmcrm/wealth-mcp/internal/scheduler"
	"github.com/xmcrm/wealth-mcp/internal/server"
	"github.com/xmcrm/wealth-mcp/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Flags override environment configuration
	transport := flag.String("transport", cfg.Transport, "Transport mode: stdio, sse or http")
	host := flag.String("host", cfg.Host, "Host for the HTTP-based transports")
	port := flag.Int("port", cfg.Port, "Port for the HTTP-based transports")
	flag.Parse()
	cfg.Transport = *transport
	cfg.Host = *host
	cfg.Port = *port
	if err := cfg.Validate(); err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Pretty console output only makes sense on the HTTP transports; on
	// stdio the logs share the terminal with the spawning client.
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.Transport != config.TransportStdio,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("transport", cfg.Transport).
		Str("db", cfg.DBPath).
		Msg("Starting wealth CRM MCP server")

	bankDB, err := database.New(database.Config{
		Path: cfg.DBPath,
		Name: "bank",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open bank database")
	}
	defer bankDB.Close()

	if err := bankDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply bank schema")
	}
	if err := bankDB.SeedIfEmpty(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed bank database")
	}

	// Repositories and services
	customerRepo := customers.NewRepository(bankDB.Conn(), log)
	productRepo := products.NewRepository(bankDB.Conn(), log)
	suitabilitySvc := suitability.NewService(customerRepo, productRepo, log)

	// Tool surface with authentication middleware
	auth := server.NewAuthenticator(cfg.APIKey, cfg.TrustLocalChannel, log)
	tools := server.NewTools(customerRepo, productRepo, suitabilitySvc, log)
	mcpServer := server.NewMCPServer(tools, auth)

	srv := server.New(server.Config{
		Log:    log,
		Cfg:    cfg,
		BankDB: bankDB,
		MCP:    mcpServer,
	})

	// Background maintenance only makes sense for long-lived processes;
	// stdio runs live as long as the spawning client does.
	var sched *scheduler.Scheduler
	if cfg.Transport != config.TransportStdio {
		sched = scheduler.New(log)

		checkpointJob := reliability.NewHourlyCheckpointJob(bankDB, log)
		if err := sched.AddJob("0 0 * * * *", checkpointJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint job")
		}

		maintenanceJob := reliability.NewDailyMaintenanceJob(bankDB, log)
		if err := sched.AddJob("0 30 3 * * *", maintenanceJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule daily maintenance job")
		}

		if cfg.Backup.Enabled() {
			s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create S3 backup client")
			}
			backupSvc := reliability.NewBackupService(bankDB, s3Client, "1.0.0", cfg.Backup.RetentionCount, log)
			if err := sched.AddJob("0 0 4 * * *", reliability.NewBackupJob(backupSvc)); err != nil {
				log.Fatal().Err(err).Msg("Failed to schedule backup job")
			}
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("S3 backups enabled")
		}

		sched.Start()
		defer sched.Stop()
	}

	// Serve in a goroutine so signals can trigger a graceful shutdown
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Server stopped with error")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}

	log.Info().Msg("Server stopped")
}
