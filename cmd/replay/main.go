// Package main replays a frozen dataset: stream events in timestamp order,
// extract a time window, or inject a synthetic scenario. All three modes are
// deterministic for a given dataset and flag set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/manifest"
	"driftlab/internal/observability"
	"driftlab/internal/replay"
)

func main() {
	// Parse flags
	datasetPath := flag.String("dataset", "", "Dataset CSV to replay (required)")
	manifestPath := flag.String("manifest", "", "Manifest JSON path (required)")
	mode := flag.String("mode", "stream", "Replay mode: stream, window, or scenario")
	verifyHash := flag.Bool("verify", true, "Verify the dataset digest before replaying")
	maxEvents := flag.Int("max-events", 0, "Maximum events to stream (0 = all)")
	speed := flag.Float64("speed", 1.0, "Pacing speed multiplier for -paced")
	paced := flag.Bool("paced", false, "Pace emission at the scaled inter-event spacing")
	quiet := flag.Bool("quiet", false, "Suppress per-event output")
	windowEnd := flag.String("window-end", "", "Window end bound, exclusive (RFC3339)")
	windowDays := flag.Int("window-days", 14, "Window length in days")
	scenarioName := flag.String("scenario", domain.ScenarioFlashCrash, "Scenario name for -mode scenario")
	scenarioSeed := flag.Int64("scenario-seed", 42, "Scenario seed")
	priceDrop := flag.Float64("price-drop", 0, "flash_crash price multiplier (0 = scenario default)")
	priceSpike := flag.Float64("price-spike", 0, "adversarial_spoof price multiplier (0 = scenario default)")
	transactions := flag.Int("transactions", 0, "Synthetic transactions to inject (0 = scenario default)")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *datasetPath == "" || *manifestPath == "" {
		logger.Fatal("--dataset and --manifest are required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		logger.Fatalf("load manifest: %v", err)
	}

	engine, err := replay.Open(*datasetPath, m, *verifyHash)
	if err != nil {
		logger.Fatalf("open dataset: %v", err)
	}
	logger.Printf("Loaded %d events from %s", engine.Len(), *datasetPath)

	switch *mode {
	case "stream":
		runStream(ctx, logger, engine, *maxEvents, *speed, *paced, *quiet, *outputJSON)
	case "window":
		endMS := parseWindowEnd(logger, *windowEnd)
		runWindow(logger, engine, endMS, *windowDays, *outputJSON)
	case "scenario":
		endMS := parseWindowEnd(logger, *windowEnd)
		spec := domain.ScenarioSpec{
			Name:            *scenarioName,
			BaseTimestampMS: endMS,
			Seed:            *scenarioSeed,
			Params:          map[string]float64{domain.ScenarioParamWindowDays: float64(*windowDays)},
		}
		if *priceDrop > 0 {
			spec.Params[domain.ScenarioParamPriceDrop] = *priceDrop
		}
		if *priceSpike > 0 {
			spec.Params[domain.ScenarioParamPriceSpike] = *priceSpike
		}
		if *transactions > 0 {
			spec.Params[domain.ScenarioParamTransactions] = float64(*transactions)
		}
		runScenario(logger, engine, spec, *outputJSON)
	default:
		logger.Fatalf("unknown mode %q (want stream, window, or scenario)", *mode)
	}
}

// parseWindowEnd parses the required -window-end flag.
func parseWindowEnd(logger *log.Logger, value string) int64 {
	if value == "" {
		logger.Fatal("--window-end is required for this mode")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Fatalf("parse window-end: %v", err)
	}
	return t.UnixMilli()
}

// StreamStats holds replay streaming statistics.
type StreamStats struct {
	TotalEvents    int     `json:"total_events"`
	FirstEventTime int64   `json:"first_event_time"`
	LastEventTime  int64   `json:"last_event_time"`
	TotalRevenue   float64 `json:"total_revenue"`
}

// runStream drains the event stream into stdout and prints a summary.
func runStream(ctx context.Context, logger *log.Logger, engine *replay.Engine, maxEvents int, speed float64, paced, quiet, outputJSON bool) {
	var stats StreamStats

	sink := replay.EventSinkFunc(func(_ context.Context, ev domain.Event) error {
		stats.TotalEvents++
		if stats.FirstEventTime == 0 {
			stats.FirstEventTime = ev.Transaction.TimestampMS
		}
		stats.LastEventTime = ev.Transaction.TimestampMS
		stats.TotalRevenue += ev.Transaction.Revenue()

		if !quiet && !outputJSON {
			fmt.Printf("[%s] seq=%d invoice=%s sku=%s qty=%d price=%.2f country=%s\n",
				time.UnixMilli(ev.Transaction.TimestampMS).UTC().Format(time.RFC3339),
				ev.Seq,
				ev.Transaction.Invoice,
				ev.Transaction.StockCode,
				ev.Transaction.Quantity,
				ev.Transaction.Price,
				ev.Transaction.Country,
			)
		}
		return nil
	})

	delivered, err := replay.NewRunner(engine).Run(ctx, maxEvents, speed, paced, sink)
	observability.RecordEventsReplayed(delivered)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("replay failed: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		logger.Printf("Replay interrupted after %d events", delivered)
	}

	// Output summary
	if outputJSON {
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Total Events:      %d\n", stats.TotalEvents)
	if stats.TotalEvents > 0 {
		fmt.Printf("First Event Time:  %s\n", time.UnixMilli(stats.FirstEventTime).UTC().Format(time.RFC3339))
		fmt.Printf("Last Event Time:   %s\n", time.UnixMilli(stats.LastEventTime).UTC().Format(time.RFC3339))
		fmt.Printf("Span:              %v\n", time.Duration(stats.LastEventTime-stats.FirstEventTime)*time.Millisecond)
		fmt.Printf("Total Revenue:     %.2f\n", stats.TotalRevenue)
	} else {
		fmt.Printf("First Event Time:  N/A\n")
		fmt.Printf("Last Event Time:   N/A\n")
	}
}

// WindowOutput is the JSON form of an extracted window.
type WindowOutput struct {
	Label   string `json:"label"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Events  int    `json:"events"`
}

// runWindow extracts one time window and prints its descriptor.
func runWindow(logger *log.Logger, engine *replay.Engine, endMS int64, windowDays int, outputJSON bool) {
	w, err := engine.Window(endMS, windowDays)
	if err != nil {
		logger.Fatalf("extract window: %v", err)
	}
	observability.RecordWindowExtracted(string(w.Label))

	printWindow(w, "Window Summary", outputJSON)
}

// runScenario injects a synthetic scenario and prints the derived window.
func runScenario(logger *log.Logger, engine *replay.Engine, spec domain.ScenarioSpec, outputJSON bool) {
	w, err := engine.InjectScenario(spec)
	if err != nil {
		logger.Fatalf("inject scenario: %v", err)
	}
	observability.RecordScenarioInjected(spec.Name)

	printWindow(w, fmt.Sprintf("Scenario Summary (%s, seed %d)", spec.Name, spec.Seed), outputJSON)
}

func printWindow(w domain.Window, title string, outputJSON bool) {
	if outputJSON {
		out, _ := json.MarshalIndent(WindowOutput{
			Label:   string(w.Label),
			StartMS: w.StartMS,
			EndMS:   w.EndMS,
			Events:  w.Len(),
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Label:   %s\n", w.Label)
	fmt.Printf("Start:   %s\n", time.UnixMilli(w.StartMS).UTC().Format(time.RFC3339))
	fmt.Printf("End:     %s\n", time.UnixMilli(w.EndMS).UTC().Format(time.RFC3339))
	fmt.Printf("Events:  %d\n", w.Len())
}
