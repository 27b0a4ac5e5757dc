package codeplugin

import "strings"

// modelPricing is USD per million tokens, mirroring published Claude
// pricing. Cache read tokens cost 0.1x base input; cache write (5-min
// TTL) tokens cost 1.25x base input.
type modelPricing struct {
	inputPerMillion  float64
	outputPerMillion float64
}

var modelPrefixes = []struct {
	prefix  string
	pricing modelPricing
}{
	{"claude-opus-4-5", modelPricing{inputPerMillion: 5.00, outputPerMillion: 25.00}},
	{"claude-sonnet-4-5", modelPricing{inputPerMillion: 3.00, outputPerMillion: 15.00}},
	{"claude-haiku-4-5", modelPricing{inputPerMillion: 1.00, outputPerMillion: 5.00}},
	{"claude-opus-4-1", modelPricing{inputPerMillion: 15.00, outputPerMillion: 75.00}},
	{"claude-opus-4", modelPricing{inputPerMillion: 15.00, outputPerMillion: 75.00}},
	{"claude-sonnet-4", modelPricing{inputPerMillion: 3.00, outputPerMillion: 15.00}},
	{"claude-3-5-sonnet", modelPricing{inputPerMillion: 3.00, outputPerMillion: 15.00}},
	{"claude-3-5-haiku", modelPricing{inputPerMillion: 0.80, outputPerMillion: 4.00}},
	{"claude-3-opus", modelPricing{inputPerMillion: 15.00, outputPerMillion: 75.00}},
	{"claude-3-haiku", modelPricing{inputPerMillion: 0.25, outputPerMillion: 1.25}},
}

var defaultPricing = modelPricing{inputPerMillion: 3.00, outputPerMillion: 15.00}

// TokenUsage holds the token counts a single loop run accumulates.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// CalculateCostWithCache computes the USD cost of usage under model's
// pricing, including cache read/write discounts and premiums.
func CalculateCostWithCache(model string, usage TokenUsage) float64 {
	p := getPricing(model)

	inputCost := float64(usage.InputTokens) / 1_000_000 * p.inputPerMillion
	cacheReadCost := float64(usage.CacheReadInputTokens) / 1_000_000 * p.inputPerMillion * 0.1
	cacheWriteCost := float64(usage.CacheCreationInputTokens) / 1_000_000 * p.inputPerMillion * 1.25
	outputCost := float64(usage.OutputTokens) / 1_000_000 * p.outputPerMillion

	return inputCost + cacheReadCost + cacheWriteCost + outputCost
}

func getPricing(model string) modelPricing {
	for _, mp := range modelPrefixes {
		if strings.HasPrefix(model, mp.prefix) {
			return mp.pricing
		}
	}
	return defaultPricing
}
