package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/hollymaclennan/residual-load-scenarios/internal/scenario"
	"github.com/hollymaclennan/residual-load-scenarios/internal/store"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Lists the recent forecast issues available in the store for a model
// and location. Handy for picking the issue pair to feed cmd/delta.
func main() {
	modelKey := flag.String("model", "eceps", "ensemble model key")
	location := flag.String("location", "", "country code (default from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	model, err := config.ModelByKey(*modelKey)
	if err != nil {
		log.Fatalf("Invalid model: %v", err)
	}

	storeClient := store.NewClient(cfg.Database, cfg.Store)
	defer storeClient.Close()

	engine := scenario.NewEngine(storeClient, nil, nil, nil, cfg.Scenario)

	issues := engine.AvailableIssues(context.Background(), model.Key, *location)
	if len(issues) == 0 {
		fmt.Printf("No issues found for %s\n", model.Label)
		return
	}

	fmt.Printf("Available issues for %s (newest first):\n", model.Label)
	for _, issue := range issues {
		fmt.Printf("  %s\n", issue.Format("2006-01-02 15:04 UTC"))
	}
}
