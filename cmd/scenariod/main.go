package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hollymaclennan/residual-load-scenarios/internal/publish"
	"github.com/hollymaclennan/residual-load-scenarios/internal/scenario"
	"github.com/hollymaclennan/residual-load-scenarios/internal/scheduler"
	"github.com/hollymaclennan/residual-load-scenarios/internal/snapshot"
	"github.com/hollymaclennan/residual-load-scenarios/internal/state"
	"github.com/hollymaclennan/residual-load-scenarios/internal/store"
	"github.com/hollymaclennan/residual-load-scenarios/internal/timer"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

func main() {
	modelKey := flag.String("model", "eceps", "ensemble model key (eceps, ec46, gfsens, ecaifsens)")
	countriesArg := flag.String("countries", "", "comma-separated country codes (default from config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Residual Load Scenario Service...")

	var countries []string
	if *countriesArg != "" {
		countries = strings.Split(*countriesArg, ",")
	}
	req, err := scenario.NewRequest(*modelKey, nil, countries, cfg.Scenario.DefaultCountry)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}
	fmt.Printf("Model: %s, countries: %v\n", req.Model.Label, req.Countries)

	// Forecast store client (connects lazily on first query)
	storeClient := store.NewClient(cfg.Database, cfg.Store)
	defer storeClient.Close()

	// Snapshot writer
	snapshots, err := snapshot.NewWriter(cfg.Scenario.SnapshotDir)
	if err != nil {
		log.Fatalf("Failed to create snapshot writer: %v", err)
	}
	fmt.Printf("Snapshots: %s\n", cfg.Scenario.SnapshotDir)

	// Create the Kafka update topic
	if err := publish.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicUpdates, 1, 1); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	producer := publish.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicUpdates)
	defer producer.Close()
	fmt.Printf("Kafka producer initialized (topic=%s)\n", cfg.Kafka.TopicUpdates)

	// Redis last-run mirror
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	runs := state.NewManager(redisClient)

	engine := scenario.NewEngine(storeClient, snapshots, producer, runs, cfg.Scenario)

	// Timer manager drives the reforecast schedule
	timerManager := timer.NewManager()
	timerManager.Start()
	defer timerManager.Stop()
	fmt.Println("Timer manager started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(timerManager, cfg.Scheduler, func() {
		engine.TryUpdate(ctx, req)
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Compute an initial bundle so the service is useful immediately
	fmt.Println("Running initial update...")
	if bundle := engine.Update(ctx, req); bundle.Empty() {
		fmt.Println("Initial update produced no scenarios (store empty or unreachable), will retry on schedule")
	} else {
		fmt.Printf("Initial bundle ready: %d rows, issue %s\n",
			bundle.ResidualScenarios.Len(), bundle.Metadata.Issue.Format("2006-01-02 15:04 UTC"))
	}

	fmt.Println("\n✓ Residual Load Scenario Service is running")
	fmt.Printf("✓ Reforecast times (UTC): %v\n", cfg.Scheduler.ReforecastTimes)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
