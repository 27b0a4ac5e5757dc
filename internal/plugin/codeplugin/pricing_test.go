package codeplugin

import "testing"

func TestGetPricingPrefixMatch(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  modelPricing
	}{
		{"exact prefix", "claude-sonnet-4-5", modelPricing{3.00, 15.00}},
		{"versioned suffix", "claude-sonnet-4-5-20250929", modelPricing{3.00, 15.00}},
		{"opus 4.5", "claude-opus-4-5-20251001", modelPricing{5.00, 25.00}},
		{"haiku 4.5", "claude-haiku-4-5", modelPricing{1.00, 5.00}},
		{"3.5 sonnet does not match 4 prefixes", "claude-3-5-sonnet-20241022", modelPricing{3.00, 15.00}},
		{"unknown model falls back to default", "claude-future-model-x", defaultPricing},
		{"empty model falls back to default", "", defaultPricing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getPricing(tt.model)
			if got != tt.want {
				t.Errorf("getPricing(%q) = %+v, want %+v", tt.model, got, tt.want)
			}
		})
	}
}

func TestCalculateCostWithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              1_000_000,
		OutputTokens:             1_000_000,
		CacheReadInputTokens:     1_000_000,
		CacheCreationInputTokens: 1_000_000,
	}

	got := CalculateCostWithCache("claude-sonnet-4-5", usage)
	// input 3.00 + cacheRead 3.00*0.1 + cacheWrite 3.00*1.25 + output 15.00
	want := 3.00 + 0.30 + 3.75 + 15.00
	if got != want {
		t.Errorf("CalculateCostWithCache = %v, want %v", got, want)
	}
}

func TestCalculateCostWithCacheZeroUsage(t *testing.T) {
	got := CalculateCostWithCache("claude-opus-4-1", TokenUsage{})
	if got != 0 {
		t.Errorf("expected zero cost for zero usage, got %v", got)
	}
}
