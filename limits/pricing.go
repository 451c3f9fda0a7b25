package limits

import "github.com/shopspring/decimal"

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// Cost calculates the USD cost of one exchange.
func (p ModelPricing) Cost(promptTokens, completionTokens int) decimal.Decimal {
	cost := decimal.NewFromInt(int64(promptTokens)).Mul(p.InputPerMTok).Div(million)
	return cost.Add(decimal.NewFromInt(int64(completionTokens)).Mul(p.OutputPerMTok).Div(million))
}

// DefaultPricing contains built-in pricing for common models (USD per
// million tokens). Override via Options.Pricing. Usage recorded for models not
// listed here still counts tokens but adds no cost.
var DefaultPricing = map[string]ModelPricing{
	"gpt-4o": {
		InputPerMTok:  decimal.NewFromFloat(2.5),
		OutputPerMTok: decimal.NewFromFloat(10),
	},
	"gpt-4o-mini": {
		InputPerMTok:  decimal.NewFromFloat(0.15),
		OutputPerMTok: decimal.NewFromFloat(0.6),
	},
	"claude-3-5-sonnet-20241022": {
		InputPerMTok:  decimal.NewFromFloat(3),
		OutputPerMTok: decimal.NewFromFloat(15),
	},
	"claude-3-5-haiku-20241022": {
		InputPerMTok:  decimal.NewFromFloat(0.8),
		OutputPerMTok: decimal.NewFromFloat(4),
	},
	"gemini-2.0-flash": {
		InputPerMTok:  decimal.NewFromFloat(0.1),
		OutputPerMTok: decimal.NewFromFloat(0.4),
	},
	"gemini-1.5-pro": {
		InputPerMTok:  decimal.NewFromFloat(1.25),
		OutputPerMTok: decimal.NewFromFloat(5),
	},
}
