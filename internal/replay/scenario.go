package replay

import (
	"fmt"
	"math/rand"
	"sort"

	"driftlab/internal/domain"
	"driftlab/internal/idhash"
)

// Scenario parameter defaults.
const (
	defaultSpoofTransactions = 50
	defaultSpoofPriceSpike   = 1.25
	defaultSpoofSKUs         = 5

	defaultCrashTransactions = 100
	defaultCrashPriceDrop    = 0.4
	defaultCrashSKUs         = 20

	defaultScenarioWindowDays = 14

	spoofSpacingMS = 40
	crashSpacingMS = 100
)

// InjectScenario derives a synthetic perturbation window from the loaded
// dataset. The base window [BaseTimestampMS - window_days*day,
// BaseTimestampMS) is taken from the real stream, synthetic transactions are
// appended, and the merged set is re-sorted into emission order. The loaded
// dataset is never modified; equal specs produce identical windows.
func (e *Engine) InjectScenario(spec domain.ScenarioSpec) (domain.Window, error) {
	if err := e.guard(); err != nil {
		return domain.Window{}, err
	}

	windowDays := int(spec.Param(domain.ScenarioParamWindowDays, defaultScenarioWindowDays))
	base, err := e.WindowAllowEmpty(spec.BaseTimestampMS, windowDays)
	if err != nil {
		return domain.Window{}, err
	}

	synthetic, err := e.generateScenario(spec)
	if err != nil {
		return domain.Window{}, err
	}

	merged := make([]domain.Transaction, 0, len(base.Events)+len(synthetic))
	for _, ev := range base.Events {
		merged = append(merged, ev.Transaction)
	}
	merged = append(merged, synthetic...)

	events := liftSorted(merged)

	// Injected rows land at or after the base timestamp, so the window end
	// moves past the last of them.
	endMS := spec.BaseTimestampMS
	if n := len(events); n > 0 {
		if last := events[n-1].Transaction.TimestampMS; last >= endMS {
			endMS = last + 1
		}
	}

	return domain.Window{
		Label:   domain.WindowLabelScenario,
		StartMS: base.StartMS,
		EndMS:   endMS,
		Events:  events,
	}, nil
}

// generateScenario builds the synthetic transactions for a spec. All
// randomness comes from a sub-seed derived from (spec.Seed, spec.Name), so
// the output is a pure function of the spec and the loaded dataset.
func (e *Engine) generateScenario(spec domain.ScenarioSpec) ([]domain.Transaction, error) {
	switch spec.Name {
	case domain.ScenarioAdversarialSpoof:
		n := int(spec.Param(domain.ScenarioParamTransactions, defaultSpoofTransactions))
		spike := spec.Param(domain.ScenarioParamPriceSpike, defaultSpoofPriceSpike)
		return e.synthesize(spec, n, defaultSpoofSKUs, spike, "SPOOF%05d", "99999", spoofSpacingMS)
	case domain.ScenarioFlashCrash:
		n := int(spec.Param(domain.ScenarioParamTransactions, defaultCrashTransactions))
		drop := spec.Param(domain.ScenarioParamPriceDrop, defaultCrashPriceDrop)
		return e.synthesize(spec, n, defaultCrashSKUs, drop, "CRASH%05d", "99998", crashSpacingMS)
	default:
		return nil, &UnknownScenarioError{Name: spec.Name}
	}
}

// synthesize emits n transactions cycling over k seeded SKUs. Each row
// carries the SKU's dataset-wide mean price scaled by factor, a synthetic
// customer and country, and timestamps spaced spacingMS apart from the base.
func (e *Engine) synthesize(spec domain.ScenarioSpec, n, k int, factor float64, invoiceFormat, customerID string, spacingMS int64) ([]domain.Transaction, error) {
	skus, meanPrice := e.sampleSKUs(spec, k)
	if len(skus) == 0 {
		return nil, fmt.Errorf("scenario %s: dataset has no stock codes to sample", spec.Name)
	}

	txns := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		sku := skus[i%len(skus)]
		txns = append(txns, domain.Transaction{
			Invoice:     fmt.Sprintf(invoiceFormat, i),
			StockCode:   sku,
			Description: "SYNTHETIC " + sku,
			Quantity:    1,
			TimestampMS: spec.BaseTimestampMS + int64(i)*spacingMS,
			Price:       meanPrice[sku] * factor,
			CustomerID:  customerID,
			Country:     "SYNTHETIC",
		})
	}
	return txns, nil
}

// sampleSKUs picks k distinct stock codes by a seeded permutation of the
// sorted unique SKU list, and returns the dataset-wide mean unit price per
// SKU. Sorting before permuting removes any dependence on file order.
func (e *Engine) sampleSKUs(spec domain.ScenarioSpec, k int) ([]string, map[string]float64) {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for _, ev := range e.events {
		sum[ev.Transaction.StockCode] += ev.Transaction.Price
		count[ev.Transaction.StockCode]++
	}

	unique := make([]string, 0, len(sum))
	for sku := range sum {
		unique = append(unique, sku)
	}
	sort.Strings(unique)

	meanPrice := make(map[string]float64, len(unique))
	for _, sku := range unique {
		meanPrice[sku] = sum[sku] / float64(count[sku])
	}

	if k > len(unique) {
		k = len(unique)
	}

	rng := rand.New(rand.NewSource(idhash.DeriveNamedSeed(spec.Seed, spec.Name)))
	perm := rng.Perm(len(unique))

	skus := make([]string, 0, k)
	for _, idx := range perm[:k] {
		skus = append(skus, unique[idx])
	}
	return skus, meanPrice
}
