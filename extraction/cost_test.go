package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost_Additive(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai", "ollama", "unknown"} {
		t.Run(provider, func(t *testing.T) {
			est := EstimateCost(120_000, 4_000, provider)
			assert.InDelta(t, est.InputCost+est.OutputCost, est.TotalCost, 1e-12)
			assert.Equal(t, provider, est.Provider)
		})
	}
}

func TestEstimateCost_LinearInTokens(t *testing.T) {
	one := EstimateCost(1_000_000, 500_000, "anthropic")
	two := EstimateCost(2_000_000, 1_000_000, "anthropic")

	assert.InDelta(t, one.InputCost*2, two.InputCost, 1e-9)
	assert.InDelta(t, one.OutputCost*2, two.OutputCost, 1e-9)
	assert.InDelta(t, one.TotalCost*2, two.TotalCost, 1e-9)
}

func TestEstimateCost_KnownRates(t *testing.T) {
	est := EstimateCost(1_000_000, 1_000_000, "anthropic")
	assert.InDelta(t, 3.00, est.InputCost, 1e-9)
	assert.InDelta(t, 15.00, est.OutputCost, 1e-9)
	assert.InDelta(t, 18.00, est.TotalCost, 1e-9)
}

func TestEstimateCost_LocalInferenceFree(t *testing.T) {
	est := EstimateCost(5_000_000, 5_000_000, "ollama")
	assert.Zero(t, est.TotalCost)
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	est := EstimateCost(0, 0, "openai")
	assert.Zero(t, est.InputCost)
	assert.Zero(t, est.OutputCost)
	assert.Zero(t, est.TotalCost)
}
