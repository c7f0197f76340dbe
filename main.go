// main.go
package main

import (
	"log"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"travel-booking/cmd"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/internal/wire"
	"travel-booking/internal/worker"
	"travel-booking/pkg/database"
	"travel-booking/pkg/utils"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Payment gateway adapters
	gateways := gateway.NewRegistry(
		gateway.NewMidtrans(config.Midtrans, config.Payment.GatewayTimeout, logger),
		gateway.NewTripay(config.Tripay, config.Payment.GatewayTimeout, logger),
		gateway.NewDuitku(config.Duitku, config.Payment.GatewayTimeout, logger),
	)
	logger.Info("Payment gateways registered", zap.Strings("gateways", gateways.Names()))

	// Wire all dependencies
	app := wire.Wiring(repos, gateways, config, logger)

	// Background sweeper: tarik kembali booking basi yang belum dibayar
	scheduler := cron.New()
	sweeper := worker.NewSweeper(repos, config.Sweeper, logger)
	if err := sweeper.Register(scheduler); err != nil {
		logger.Fatal("Failed to register sweeper", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Sweeper scheduled", zap.String("schedule", config.Sweeper.Schedule))

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
