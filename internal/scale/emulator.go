package scale

import (
	"math/rand/v2"
	"sync"
)

// EmulatorConfig tunes the simulated weighing cycle.
type EmulatorConfig struct {
	// BaseWeight anchors the cycle; each reset jitters around it.
	BaseWeight float64
	// Fluctuation bounds the per-reading noise amplitude.
	Fluctuation float64
	// IncrementStep is the per-reading ramp while loading.
	IncrementStep float64
	// LoadingSamples is how many readings the upward ramp lasts.
	LoadingSamples int
	// SettlingSamples is how many readings the slight decline lasts.
	SettlingSamples int
}

// DefaultEmulatorConfig mirrors a truck being loaded over ~50 readings and
// settling over ~20 before the next truck arrives.
func DefaultEmulatorConfig() EmulatorConfig {
	return EmulatorConfig{
		BaseWeight:      100,
		Fluctuation:     1,
		IncrementStep:   0.5,
		LoadingSamples:  50,
		SettlingSamples: 20,
	}
}

// Emulator simulates a weight indicator. Every reading is rendered to the
// wire line format and decoded back through ParseLine, so the emulator
// exercises the same decoding path as the physical device.
type Emulator struct {
	cfg EmulatorConfig

	mu      sync.Mutex
	current float64
	counter int
	rng     *rand.Rand
}

// NewEmulator constructs an Emulator with its own random source.
func NewEmulator(cfg EmulatorConfig) *Emulator {
	if cfg.LoadingSamples <= 0 {
		cfg.LoadingSamples = 50
	}
	if cfg.SettlingSamples <= 0 {
		cfg.SettlingSamples = 20
	}
	return &Emulator{
		cfg:     cfg,
		current: cfg.BaseWeight,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Connect is a no-op; the emulator is always reachable.
func (e *Emulator) Connect() error { return nil }

// Disconnect is a no-op.
func (e *Emulator) Disconnect() error { return nil }

// ReadWeight advances the simulated cycle by one reading.
func (e *Emulator) ReadWeight() (float64, bool) {
	return ParseLine(e.NextLine())
}

// NextLine produces the next raw indicator line of the cycle.
func (e *Emulator) NextLine() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.counter < e.cfg.LoadingSamples:
		e.current += e.cfg.IncrementStep
	case e.counter < e.cfg.LoadingSamples+e.cfg.SettlingSamples:
		e.current -= e.cfg.IncrementStep / 2
	default:
		// Next truck: reset near the anchor.
		e.current = e.cfg.BaseWeight + e.uniform(10)
		e.counter = 0
	}
	e.counter++

	weight := e.current + e.uniform(e.cfg.Fluctuation)
	if weight < 0 {
		weight = 0
	}
	return EncodeLine(weight)
}

// uniform returns a value in [-amplitude, amplitude).
func (e *Emulator) uniform(amplitude float64) float64 {
	return (e.rng.Float64()*2 - 1) * amplitude
}
