package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func rate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	tests := []struct {
		name        string
		usage       TokenUsage
		rates       ModelRates
		class       TransactionClass
		wantItems   int
		wantAmounts []string
		wantTotal   string
	}{
		{
			name:        "priced usage splits input and output",
			usage:       TokenUsage{PromptTokens: 1000, CompletionTokens: 500},
			rates:       ModelRates{CostPerMillionInput: rate("2.00"), CostPerMillionOutput: rate("6.00")},
			class:       ClassUsage,
			wantItems:   2,
			wantAmounts: []string{"-0.00236000", "-0.00354000"},
			wantTotal:   "-0.00590000",
		},
		{
			name:        "self usage gets the lower markup",
			usage:       TokenUsage{PromptTokens: 1000},
			rates:       ModelRates{CostPerMillionInput: rate("2.00")},
			class:       ClassSelfUsage,
			wantItems:   1,
			wantAmounts: []string{"-0.00210000"},
			wantTotal:   "-0.00210000",
		},
		{
			name:        "unpriced model records zero-cost items",
			usage:       TokenUsage{PromptTokens: 300, CompletionTokens: 200},
			rates:       ModelRates{},
			class:       ClassUsage,
			wantItems:   2,
			wantAmounts: []string{"0.00000000", "0.00000000"},
			wantTotal:   "0.00000000",
		},
		{
			name:      "zero tokens produce no items",
			usage:     TokenUsage{},
			rates:     ModelRates{CostPerMillionInput: rate("2.00")},
			class:     ClassUsage,
			wantItems: 0,
			wantTotal: "0.00000000",
		},
		{
			name:        "output only",
			usage:       TokenUsage{CompletionTokens: 1},
			rates:       ModelRates{CostPerMillionOutput: rate("6.00")},
			class:       ClassUsage,
			wantItems:   1,
			wantAmounts: []string{"-0.00000708"},
			wantTotal:   "-0.00000708",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := calc.Calculate(tt.usage, tt.rates, tt.class)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}

			if len(items) != tt.wantItems {
				t.Fatalf("item count = %d, want %d", len(items), tt.wantItems)
			}

			total := decimal.Zero
			for i, item := range items {
				if got := item.Amount.StringFixed(8); got != tt.wantAmounts[i] {
					t.Errorf("item[%d].Amount = %s, want %s", i, got, tt.wantAmounts[i])
				}
				if item.Amount.IsPositive() {
					t.Errorf("item[%d].Amount = %s, debits must never be positive", i, item.Amount)
				}
				total = total.Add(item.Amount)
			}

			if got := total.StringFixed(8); got != tt.wantTotal {
				t.Errorf("total = %s, want %s", got, tt.wantTotal)
			}
		})
	}
}

func TestCalculateTokenTypes(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	items, err := calc.Calculate(
		TokenUsage{PromptTokens: 10, CompletionTokens: 20},
		ModelRates{CostPerMillionInput: rate("1.00"), CostPerMillionOutput: rate("1.00")},
		ClassUsage,
	)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if items[0].TokenType != "input" || items[0].TokenAmount != 10 {
		t.Errorf("items[0] = %+v, want input/10", items[0])
	}
	if items[1].TokenType != "output" || items[1].TokenAmount != 20 {
		t.Errorf("items[1] = %+v, want output/20", items[1])
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	negative := decimal.RequireFromString("-1")

	tests := []struct {
		name    string
		usage   TokenUsage
		rates   ModelRates
		class   TransactionClass
		wantErr error
	}{
		{
			name:    "negative prompt tokens",
			usage:   TokenUsage{PromptTokens: -1},
			class:   ClassUsage,
			wantErr: ErrNegativeTokens,
		},
		{
			name:    "negative completion tokens",
			usage:   TokenUsage{CompletionTokens: -5},
			class:   ClassUsage,
			wantErr: ErrNegativeTokens,
		},
		{
			name:    "negative rate",
			usage:   TokenUsage{PromptTokens: 1},
			rates:   ModelRates{CostPerMillionInput: &negative},
			class:   ClassUsage,
			wantErr: ErrNegativeRate,
		},
		{
			name:    "unknown class",
			usage:   TokenUsage{PromptTokens: 1},
			class:   TransactionClass("purchase"),
			wantErr: ErrUnknownClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := calc.Calculate(tt.usage, tt.rates, tt.class)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if items != nil {
				t.Errorf("items = %v, want nil on error", items)
			}
		})
	}
}

// Determinism: the same observation must always price identically, because a
// retried charge re-runs the whole computation.
func TestCalculateIsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	usage := TokenUsage{PromptTokens: 123456, CompletionTokens: 654321}
	rates := ModelRates{CostPerMillionInput: rate("2.50"), CostPerMillionOutput: rate("10.00")}

	first, err := calc.Calculate(usage, rates, ClassUsage)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := calc.Calculate(usage, rates, ClassUsage)
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		for j := range first {
			if !first[j].Amount.Equal(again[j].Amount) {
				t.Fatalf("run %d: amount %s != %s", i, again[j].Amount, first[j].Amount)
			}
		}
	}
}
