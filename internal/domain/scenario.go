package domain

// Scenario name constants
const (
	ScenarioAdversarialSpoof = "adversarial_spoof"
	ScenarioFlashCrash       = "flash_crash"
)

// Scenario parameter keys. Parameters are a name → value mapping so callers
// can pass a partial set; absent keys take the per-scenario defaults.
const (
	ScenarioParamTransactions = "n_transactions"
	ScenarioParamPriceSpike   = "price_spike"
	ScenarioParamPriceDrop    = "price_drop"
	ScenarioParamWindowDays   = "window_days"
)

// ScenarioSpec fully determines a synthetic perturbation. Equal specs must
// produce byte-identical derived windows.
type ScenarioSpec struct {
	Name            string             // "adversarial_spoof" | "flash_crash"
	BaseTimestampMS int64              // injection point, Unix milliseconds UTC
	Params          map[string]float64 // scenario parameters, nil means all defaults
	Seed            int64              // seed for every randomized component
}

// Param returns the named parameter or def when absent.
func (s ScenarioSpec) Param(name string, def float64) float64 {
	if s.Params == nil {
		return def
	}
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}
