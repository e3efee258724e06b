package main

import (
	"context"
	"log"

	"ai-agenthub-be/internal/bootstrap"
	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/server"
	"ai-agenthub-be/internal/tracer"
	"ai-agenthub-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	// Note: In a larger app, we might use an errgroup or supervisor here
	go func() {
		log.Println("Background: Starting Ledger Event Consumer...")
		if err := container.LedgerEventConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Ledger Consumer Error: %v", err)
		}
	}()
	if container.UsageConsumerService != nil {
		go func() {
			log.Println("Background: Starting Usage Consumer...")
			if err := container.UsageConsumerService.Consume(context.Background()); err != nil {
				log.Printf("Background Usage Consumer Error: %v", err)
			}
		}()
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
