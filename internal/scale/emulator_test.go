package scale

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var framePattern = regexp.MustCompile(`^ST,GS,[+-]\d{6}\.\d{2}kg\r\n$`)

func TestEmulatorFrameFormat(t *testing.T) {
	e := NewEmulator(DefaultEmulatorConfig())
	for i := 0; i < 200; i++ {
		line := e.NextLine()
		require.Regexp(t, framePattern, line)
	}
}

func TestEmulatorCycle(t *testing.T) {
	e := NewEmulator(EmulatorConfig{
		BaseWeight:      100,
		Fluctuation:     0,
		IncrementStep:   0.5,
		LoadingSamples:  5,
		SettlingSamples: 4,
	})

	// Loading ramps up by the full step, settling declines by half of it.
	want := []float64{100.5, 101, 101.5, 102, 102.5, 102.25, 102, 101.75, 101.5}
	for i, expected := range want {
		got, ok := e.ReadWeight()
		require.True(t, ok)
		require.InDelta(t, expected, got, 0.001, "sample %d", i)
	}

	// The next truck resets near the anchor weight.
	got, ok := e.ReadWeight()
	require.True(t, ok)
	require.GreaterOrEqual(t, got, 90.0)
	require.Less(t, got, 110.0)
}

func TestEmulatorNeverGoesNegative(t *testing.T) {
	e := NewEmulator(EmulatorConfig{
		BaseWeight:      -500,
		Fluctuation:     2,
		IncrementStep:   1,
		LoadingSamples:  10,
		SettlingSamples: 5,
	})
	for i := 0; i < 100; i++ {
		got, ok := e.ReadWeight()
		require.True(t, ok)
		require.GreaterOrEqual(t, got, 0.0)
	}
}

func TestEmulatorDefaultsBackfilled(t *testing.T) {
	e := NewEmulator(EmulatorConfig{BaseWeight: 50})
	require.Equal(t, 50, e.cfg.LoadingSamples)
	require.Equal(t, 20, e.cfg.SettlingSamples)
}
