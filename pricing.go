package salesim

// DefaultModel is the model used when no model is configured. It also names
// the price tier unknown models fall back to.
const DefaultModel = "gpt-4o-mini"

// tokensPerPriceUnit is the token volume the published prices refer to.
const tokensPerPriceUnit = 1_000_000

// ModelPricing holds the USD price per one million tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// UsageRecord is the cost breakdown of a single exchange. All fields are
// derived from the token counts and the price table; they are never mutated
// independently.
type UsageRecord struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
}

// PriceTable maps model identifiers to their published per-million-token
// prices. Unknown models degrade to the default tier's prices rather than
// failing; invalid model names are a pricing concern, not an error.
type PriceTable struct {
	prices      map[string]ModelPricing
	defaultTier string
}

// NewPriceTable returns a table seeded with the built-in prices and the
// default fallback tier.
func NewPriceTable() *PriceTable {
	return &PriceTable{
		prices: map[string]ModelPricing{
			"gpt-4o-mini":                {InputPerMillion: 0.15, OutputPerMillion: 0.60},
			"gpt-4o":                     {InputPerMillion: 2.50, OutputPerMillion: 10.00},
			"gpt-4.1-mini":               {InputPerMillion: 0.40, OutputPerMillion: 1.60},
			"gpt-3.5-turbo":              {InputPerMillion: 0.50, OutputPerMillion: 1.50},
			"claude-3-5-sonnet-20240620": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
			"claude-3-haiku-20240307":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
		},
		defaultTier: DefaultModel,
	}
}

// Pricing returns the prices for the given model, falling back to the
// default tier when the model is unknown.
func (t *PriceTable) Pricing(model string) ModelPricing {
	if pricing, ok := t.prices[model]; ok {
		return pricing
	}
	return t.prices[t.defaultTier]
}

// Cost computes the cost breakdown for one exchange. The arithmetic stays in
// float64 so that small token counts do not round to zero.
func (t *PriceTable) Cost(model string, promptTokens, completionTokens int) UsageRecord {
	pricing := t.Pricing(model)

	inputCost := float64(promptTokens) / tokensPerPriceUnit * pricing.InputPerMillion
	outputCost := float64(completionTokens) / tokensPerPriceUnit * pricing.OutputPerMillion

	return UsageRecord{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		InputCost:        inputCost,
		OutputCost:       outputCost,
		TotalCost:        inputCost + outputCost,
	}
}
