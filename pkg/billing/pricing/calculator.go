// Package pricing converts raw token usage into ledger debit amounts. It is
// pure: no storage, no clock, no I/O. Everything that determines revenue lives
// in Policy so that the multiplier applied to any historical transaction can be
// reconstructed from configuration history.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

type TransactionClass string

const (
	// ClassUsage is externally attributed usage, charged at the full markup.
	ClassUsage TransactionClass = "usage"
	// ClassSelfUsage is internally attributed usage (e.g. the tenant's own
	// agents exercising their own knowledge base), charged at a lower markup.
	ClassSelfUsage TransactionClass = "self_usage"
)

var (
	ErrNegativeTokens = errors.New("pricing: token counts must not be negative")
	ErrNegativeRate   = errors.New("pricing: cost rates must not be negative")
	ErrUnknownClass   = errors.New("pricing: unknown transaction class")
)

type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// ModelRates are provider list prices per million tokens. A nil rate means the
// model is unpriced; usage is still recorded, at zero cost.
type ModelRates struct {
	CostPerMillionInput  *decimal.Decimal
	CostPerMillionOutput *decimal.Decimal
}

// LineItem is one ledger entry to append: input and output tokens are priced
// as separate items so analytics can split cost by token type. Amount is the
// signed debit (zero or negative).
type LineItem struct {
	TokenType   string // "input" or "output"
	TokenAmount int64
	Amount      decimal.Decimal
}

// Policy holds the markup multipliers. Changing these values is a
// pricing-policy change, not a refactor.
type Policy struct {
	UsageMarkup     decimal.Decimal
	SelfUsageMarkup decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		UsageMarkup:     decimal.RequireFromString("1.18"),
		SelfUsageMarkup: decimal.RequireFromString("1.05"),
	}
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Calculate prices the given usage. One LineItem is emitted per token type
// that actually has tokens; amounts are negated debits rounded to 8 fractional
// digits. Invalid input fails before any amount is produced so callers never
// append a mispriced transaction.
func (c *Calculator) Calculate(usage TokenUsage, rates ModelRates, class TransactionClass) ([]LineItem, error) {
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 {
		return nil, ErrNegativeTokens
	}
	if (rates.CostPerMillionInput != nil && rates.CostPerMillionInput.IsNegative()) ||
		(rates.CostPerMillionOutput != nil && rates.CostPerMillionOutput.IsNegative()) {
		return nil, ErrNegativeRate
	}

	markup, err := c.markupFor(class)
	if err != nil {
		return nil, err
	}

	var items []LineItem
	if usage.PromptTokens > 0 {
		items = append(items, LineItem{
			TokenType:   "input",
			TokenAmount: usage.PromptTokens,
			Amount:      cost(usage.PromptTokens, rates.CostPerMillionInput, markup),
		})
	}
	if usage.CompletionTokens > 0 {
		items = append(items, LineItem{
			TokenType:   "output",
			TokenAmount: usage.CompletionTokens,
			Amount:      cost(usage.CompletionTokens, rates.CostPerMillionOutput, markup),
		})
	}
	return items, nil
}

func (c *Calculator) markupFor(class TransactionClass) (decimal.Decimal, error) {
	switch class {
	case ClassUsage:
		return c.policy.UsageMarkup, nil
	case ClassSelfUsage:
		return c.policy.SelfUsageMarkup, nil
	default:
		return decimal.Zero, ErrUnknownClass
	}
}

// cost = tokens * ratePerMillion / 1_000_000 * markup, negated. Shift(-6) keeps
// the division exact; rounding to 8 digits matches the ledger column scale.
func cost(tokens int64, ratePerMillion *decimal.Decimal, markup decimal.Decimal) decimal.Decimal {
	if ratePerMillion == nil {
		return decimal.Zero
	}
	return ratePerMillion.
		Mul(decimal.NewFromInt(tokens)).
		Shift(-6).
		Mul(markup).
		Round(8).
		Neg()
}
