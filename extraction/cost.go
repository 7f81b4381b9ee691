package extraction

// providerRates holds fixed USD rates per million tokens.
type providerRates struct {
	inputPerMTok  float64
	outputPerMTok float64
}

var costRates = map[string]providerRates{
	"anthropic": {inputPerMTok: 3.00, outputPerMTok: 15.00},
	"openai":    {inputPerMTok: 2.50, outputPerMTok: 10.00},
	"ollama":    {inputPerMTok: 0, outputPerMTok: 0}, // local inference
}

// CostEstimate is a pre-flight monetary estimate for one invocation.
type CostEstimate struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
	Provider   string  `json:"provider"`
}

// EstimateCost applies fixed per-provider per-million-token rates.
// Pure arithmetic; unknown providers estimate at zero cost.
func EstimateCost(inputTokens, outputTokens int, provider string) CostEstimate {
	rates := costRates[provider]
	in := float64(inputTokens) / 1e6 * rates.inputPerMTok
	out := float64(outputTokens) / 1e6 * rates.outputPerMTok
	return CostEstimate{
		InputCost:  in,
		OutputCost: out,
		TotalCost:  in + out,
		Provider:   provider,
	}
}
