// Package datagen produces deterministic synthetic retail datasets with the
// same schema and texture as the UCI Online Retail II export: log-normal
// prices, Zipf SKU popularity, business-hour and weekday activity bias, and
// multi-line invoices. Synthetic data is a development substitute; the
// dataset columns match the real export exactly.
package datagen

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"driftlab/internal/domain"
)

// Frozen generation defaults.
const (
	DefaultSeed         = 42
	DefaultTransactions = 50_000
	DefaultSKUs         = 500
	DefaultCustomers    = 2_000

	invoiceCounterStart = 100_000
	customerIDBase      = 10_000

	priceLogMean  = 1.5
	priceLogSigma = 0.8
	priceMin      = 0.25
	priceMax      = 100.0
)

var (
	categories = []string{
		"VINTAGE", "METAL", "WOODEN", "CERAMIC", "GLASS",
		"PAPER", "FABRIC", "RETRO", "JUMBO", "MINI",
	}
	items = []string{
		"SIGN", "BOX", "HOLDER", "HEART", "LANTERN",
		"BUNTING", "CANDLE", "FRAME", "STORAGE", "DECORATION",
	}
	colors = []string{
		"RED", "BLUE", "GREEN", "WHITE", "BLACK",
		"PINK", "CREAM", "IVORY", "SILVER", "GOLD",
	}

	countries       = []string{"United Kingdom", "Germany", "France", "Spain", "Netherlands", "Belgium", "Switzerland", "Portugal", "Australia", "Japan"}
	countryWeights  = []float64{0.70, 0.08, 0.06, 0.04, 0.03, 0.02, 0.02, 0.02, 0.02, 0.01}
	lineItemCounts  = []int64{1, 2, 3, 4, 5}
	lineItemWeights = []float64{0.60, 0.20, 0.10, 0.07, 0.03}
	quantities      = []int64{1, 2, 3, 4, 6, 12, 24}
	quantityWeights = []float64{0.50, 0.20, 0.12, 0.08, 0.05, 0.03, 0.02}
)

// Config controls one generation run. Equal configs produce identical
// datasets.
type Config struct {
	Seed            int64
	NumTransactions int // invoice attempts; activity bias rejects a share of them
	NumSKUs         int
	NumCustomers    int
	StartMS         int64 // earliest invoice timestamp (inclusive)
	EndMS           int64 // latest invoice timestamp (exclusive)
}

// DefaultConfig is the frozen development configuration: one year of
// activity from 2009-12-01.
func DefaultConfig() Config {
	return Config{
		Seed:            DefaultSeed,
		NumTransactions: DefaultTransactions,
		NumSKUs:         DefaultSKUs,
		NumCustomers:    DefaultCustomers,
		StartMS:         time.Date(2009, 12, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		EndMS:           time.Date(2010, 12, 9, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

// Validate checks config ranges.
func (c Config) Validate() error {
	if c.NumTransactions <= 0 {
		return fmt.Errorf("num transactions must be positive, got %d", c.NumTransactions)
	}
	if c.NumSKUs <= 0 {
		return fmt.Errorf("num skus must be positive, got %d", c.NumSKUs)
	}
	if c.NumCustomers <= 0 {
		return fmt.Errorf("num customers must be positive, got %d", c.NumCustomers)
	}
	if c.EndMS <= c.StartMS {
		return fmt.Errorf("date range [%d, %d) is empty", c.StartMS, c.EndMS)
	}
	return nil
}

// Generator produces a synthetic dataset from a single seeded stream. All
// randomness flows through one rng, so output is a pure function of Config.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a generator.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Generate builds the dataset, sorted by invoice timestamp with ties in
// generation order. Row count lands below NumTransactions because off-hour
// and weekend invoice attempts are mostly rejected.
func (g *Generator) Generate() []domain.Transaction {
	skus := g.skuCodes()
	descriptions := g.descriptions(skus)
	basePrices := g.baselinePrices(skus)

	var txns []domain.Transaction
	invoiceCounter := invoiceCounterStart
	spanSec := (g.cfg.EndMS - g.cfg.StartMS) / 1000

	for i := 0; i < g.cfg.NumTransactions; i++ {
		ts := g.cfg.StartMS + g.rng.Int63n(spanSec)*1000
		at := time.UnixMilli(ts).UTC()

		// Bias toward business hours (9:00-18:59): keep 30% of off-hour
		// attempts.
		if hour := at.Hour(); hour < 9 || hour > 18 {
			if g.rng.Float64() > 0.3 {
				continue
			}
		}
		// Bias toward weekdays: keep 40% of weekend attempts.
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			if g.rng.Float64() > 0.4 {
				continue
			}
		}

		invoice := fmt.Sprintf("C%d", invoiceCounter)
		invoiceCounter++

		nItems := lineItemCounts[g.weightedIndex(lineItemWeights)]
		selected := g.pickSKUs(skus, int(nItems))
		customer := strconv.Itoa(customerIDBase + g.rng.Intn(g.cfg.NumCustomers))
		country := countries[g.weightedIndex(countryWeights)]

		for _, sku := range selected {
			quantity := quantities[g.weightedIndex(quantityWeights)]

			// Unit price wiggles within ±5% of the SKU baseline.
			variance := -0.05 + g.rng.Float64()*0.10
			price := math.Round(basePrices[sku]*(1+variance)*100) / 100

			txns = append(txns, domain.Transaction{
				Invoice:     invoice,
				StockCode:   sku,
				Description: descriptions[sku],
				Quantity:    quantity,
				TimestampMS: ts,
				Price:       price,
				CustomerID:  customer,
				Country:     country,
			})
		}
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].TimestampMS < txns[j].TimestampMS
	})
	return txns
}

// skuCodes generates SKU identifiers: every third is purely numeric, the
// rest carry a letter prefix.
func (g *Generator) skuCodes() []string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	skus := make([]string, g.cfg.NumSKUs)
	for i := range skus {
		if i%3 == 0 {
			skus[i] = fmt.Sprintf("%05d", i)
		} else {
			skus[i] = fmt.Sprintf("%c%04d", letters[g.rng.Intn(len(letters))], i)
		}
	}
	return skus
}

// descriptions assigns each SKU a product name; 70% carry a color.
func (g *Generator) descriptions(skus []string) map[string]string {
	out := make(map[string]string, len(skus))
	for _, sku := range skus {
		cat := categories[g.rng.Intn(len(categories))]
		item := items[g.rng.Intn(len(items))]
		if g.rng.Float64() > 0.3 {
			out[sku] = cat + " " + colors[g.rng.Intn(len(colors))] + " " + item
		} else {
			out[sku] = cat + " " + item
		}
	}
	return out
}

// baselinePrices draws each SKU's reference price from a log-normal,
// rounded to the nearest 0.05 and clamped into [priceMin, priceMax].
func (g *Generator) baselinePrices(skus []string) map[string]float64 {
	out := make(map[string]float64, len(skus))
	for _, sku := range skus {
		price := math.Exp(g.rng.NormFloat64()*priceLogSigma + priceLogMean)
		price = math.Round(price*20) / 20
		out[sku] = math.Min(priceMax, math.Max(priceMin, price))
	}
	return out
}

// pickSKUs selects n distinct SKUs by Zipf-weighted draw, so a handful of
// SKUs dominate invoice lines.
func (g *Generator) pickSKUs(skus []string, n int) []string {
	if n > len(skus) {
		n = len(skus)
	}

	weights := make([]float64, len(skus))
	zipf := rand.NewZipf(g.rng, 1.5, 1, uint64(len(skus)))
	for i := range weights {
		weights[i] = float64(zipf.Uint64() + 1)
	}

	selected := make([]string, 0, n)
	taken := make(map[int]bool, n)
	for len(selected) < n {
		idx := g.weightedIndex(weights)
		if taken[idx] {
			continue
		}
		taken[idx] = true
		weights[idx] = 0
		selected = append(selected, skus[idx])
	}
	return selected
}

// weightedIndex draws an index with probability proportional to weights.
func (g *Generator) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}
