package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/scenario"
	"github.com/hollymaclennan/residual-load-scenarios/internal/store"
	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Compares two forecast issues and prints the delta table: either one
// element's ensemble-mean change (-element wind|solar) or the combined
// residual-load delta (-element residual, the default).
func main() {
	modelKey := flag.String("model", "eceps", "ensemble model key")
	location := flag.String("location", "", "country code (default from config)")
	element := flag.String("element", "residual", "wind, solar or residual")
	issueOldArg := flag.String("old", "", "older issue time (RFC3339, required)")
	issueNewArg := flag.String("new", "", "newer issue time (RFC3339, required)")
	startArg := flag.String("start", "", "valid window start (RFC3339, default now)")
	days := flag.Int("days", 7, "valid window length in days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	issueOld := mustParseTime(*issueOldArg, "old")
	issueNew := mustParseTime(*issueNewArg, "new")
	start := time.Now().UTC().Truncate(time.Hour)
	if *startArg != "" {
		start = mustParseTime(*startArg, "start")
	}
	end := start.AddDate(0, 0, *days)

	req, err := scenario.NewRequest(*modelKey, nil, nil, cfg.Scenario.DefaultCountry)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	storeClient := store.NewClient(cfg.Database, cfg.Store)
	defer storeClient.Close()

	engine := scenario.NewEngine(storeClient, nil, nil, nil, cfg.Scenario)
	ctx := context.Background()

	var result *timeseries.Frame
	switch *element {
	case "residual":
		result = engine.ComputeResidualLoadDelta(ctx, req, issueNew, issueOld, start, end, *location)
	case "wind", "solar":
		result = engine.ComputeForecastDelta(ctx, req, *element, issueNew, issueOld, start, end, *location)
	default:
		log.Fatalf("Unknown element %q (expected wind, solar or residual)", *element)
	}

	if result.Empty() {
		fmt.Println("No overlapping data between the two issues")
		return
	}

	printFrame(result)
}

func mustParseTime(arg, name string) time.Time {
	if arg == "" {
		log.Fatalf("Missing required -%s issue time", name)
	}
	t, err := time.Parse(time.RFC3339, arg)
	if err != nil {
		log.Fatalf("Invalid -%s time %q: %v", name, arg, err)
	}
	return t.UTC()
}

func printFrame(f *timeseries.Frame) {
	cols := f.Columns()

	fmt.Printf("%-20s", "utc_datetime")
	for _, c := range cols {
		fmt.Printf("  %14s", c)
	}
	fmt.Println()

	for i := 0; i < f.Len(); i++ {
		fmt.Printf("%-20s", f.Time(i).Format("2006-01-02 15:04"))
		for _, c := range cols {
			fmt.Printf("  %14.2f", f.Value(i, c))
		}
		fmt.Println()
	}
}
