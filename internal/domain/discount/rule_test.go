package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func mustBundle(t *testing.T, category string, buy, free int) Rule {
	t.Helper()
	r, err := NewBundleRule(category, buy, free)
	require.NoError(t, err)
	return r
}

func mustCheapest(t *testing.T, category string, minQty int, percent string) Rule {
	t.Helper()
	r, err := NewCheapestInCategoryRule(category, minQty, d(percent))
	require.NoError(t, err)
	return r
}

func mustThreshold(t *testing.T, threshold, percent string) Rule {
	t.Helper()
	r, err := NewTotalThresholdRule(d(threshold), d(percent))
	require.NoError(t, err)
	return r
}

func item(productID, categoryID string, qty int, unitPrice string) LineItem {
	price := d(unitPrice)
	return LineItem{
		ProductID:  productID,
		CategoryID: categoryID,
		Quantity:   qty,
		UnitPrice:  price,
		Total:      price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func snapshot(id string, items ...LineItem) Snapshot {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return Snapshot{ID: id, Total: total, Items: items}
}

func TestNewBundleRule_Validation(t *testing.T) {
	tests := []struct {
		name     string
		category string
		buy      int
		free     int
	}{
		{"empty category", "", 6, 1},
		{"zero buy quantity", "2", 0, 1},
		{"negative buy quantity", "2", -1, 1},
		{"zero free quantity", "2", 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBundleRule(tt.category, tt.buy, tt.free)
			require.Error(t, err)
		})
	}
}

func TestNewCheapestInCategoryRule_Validation(t *testing.T) {
	tests := []struct {
		name     string
		category string
		minQty   int
		percent  string
	}{
		{"empty category", "", 2, "0.2"},
		{"zero min quantity", "1", 0, "0.2"},
		{"negative percent", "1", 2, "-0.1"},
		{"percent above one", "1", 2, "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCheapestInCategoryRule(tt.category, tt.minQty, d(tt.percent))
			require.Error(t, err)
		})
	}
}

func TestNewTotalThresholdRule_Validation(t *testing.T) {
	_, err := NewTotalThresholdRule(d("-1"), d("0.1"))
	require.Error(t, err)

	_, err = NewTotalThresholdRule(d("1000"), d("1.01"))
	require.Error(t, err)
}

func TestEvaluate_Bundle(t *testing.T) {
	tests := []struct {
		name         string
		rule         Rule
		items        []LineItem
		wantEligible bool
		wantAmount   decimal.Decimal
	}{
		{
			name:         "quantity 11 buy 6 grants one free unit",
			rule:         mustBundle(t, "2", 6, 1),
			items:        []LineItem{item("p1", "2", 11, "50")},
			wantEligible: true,
			wantAmount:   d("50"),
		},
		{
			name:         "quantity 12 buy 6 grants two free units",
			rule:         mustBundle(t, "2", 6, 1),
			items:        []LineItem{item("p1", "2", 12, "30")},
			wantEligible: true,
			wantAmount:   d("60"),
		},
		{
			name:         "exact multiple grants exactly one bundle",
			rule:         mustBundle(t, "2", 6, 1),
			items:        []LineItem{item("p1", "2", 6, "10")},
			wantEligible: true,
			wantAmount:   d("10"),
		},
		{
			name: "free units are per product, not pooled",
			rule: mustBundle(t, "2", 6, 1),
			items: []LineItem{
				item("p1", "2", 4, "10"),
				item("p2", "2", 4, "10"),
			},
			wantEligible: false,
		},
		{
			name: "two qualifying products both contribute",
			rule: mustBundle(t, "2", 6, 2),
			items: []LineItem{
				item("p1", "2", 6, "10"),
				item("p2", "2", 13, "5"),
			},
			wantEligible: true,
			// p1: 1*2 free @10 = 20; p2: floor(13/6)=2, 4 free @5 = 20.
			wantAmount: d("40"),
		},
		{
			name:         "wrong category is ineligible",
			rule:         mustBundle(t, "2", 6, 1),
			items:        []LineItem{item("p1", "3", 12, "30")},
			wantEligible: false,
		},
		{
			name:         "quantity below buy quantity is ineligible",
			rule:         mustBundle(t, "2", 6, 1),
			items:        []LineItem{item("p1", "2", 5, "30")},
			wantEligible: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tt.rule, snapshot("o1", tt.items...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantEligible, res.Eligible)
			if tt.wantEligible {
				assert.True(t, tt.wantAmount.Equal(res.Amount),
					"amount = %s, want %s", res.Amount, tt.wantAmount)
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestEvaluate_CheapestPercent(t *testing.T) {
	rule := mustCheapest(t, "1", 2, "0.2")

	t.Run("discounts one unit of the cheapest product", func(t *testing.T) {
		s := snapshot("o1",
			item("p1", "1", 2, "100"),
			item("p2", "1", 1, "40"),
		)
		res, err := Evaluate(rule, s)
		require.NoError(t, err)
		require.True(t, res.Eligible)
		assert.True(t, d("8").Equal(res.Amount), "amount = %s", res.Amount)
		assert.Contains(t, res.Reason, "p2")
		assert.Contains(t, res.Reason, "20%")
	})

	t.Run("tie on unit price picks the first item", func(t *testing.T) {
		s := snapshot("o1",
			item("p1", "1", 1, "40"),
			item("p2", "1", 1, "40"),
		)
		res, err := Evaluate(rule, s)
		require.NoError(t, err)
		require.True(t, res.Eligible)
		assert.Contains(t, res.Reason, "p1")
	})

	t.Run("total quantity below minimum is ineligible", func(t *testing.T) {
		s := snapshot("o1", item("p1", "1", 1, "100"))
		res, err := Evaluate(rule, s)
		require.NoError(t, err)
		assert.False(t, res.Eligible)
	})

	t.Run("quantities across lines count toward the minimum", func(t *testing.T) {
		s := snapshot("o1",
			item("p1", "1", 1, "100"),
			item("p2", "1", 1, "60"),
		)
		res, err := Evaluate(rule, s)
		require.NoError(t, err)
		require.True(t, res.Eligible)
		assert.True(t, d("12").Equal(res.Amount), "amount = %s", res.Amount)
	})

	t.Run("other categories do not count", func(t *testing.T) {
		s := snapshot("o1",
			item("p1", "1", 1, "100"),
			item("p2", "9", 5, "10"),
		)
		res, err := Evaluate(rule, s)
		require.NoError(t, err)
		assert.False(t, res.Eligible)
	})
}

func TestEvaluate_TotalThreshold(t *testing.T) {
	rule := mustThreshold(t, "1000", "0.1")

	tests := []struct {
		name         string
		total        string
		wantEligible bool
		wantAmount   string
	}{
		{"total above threshold", "1500", true, "150"},
		{"total exactly at threshold", "1000", true, "100"},
		{"total below threshold", "999", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapshot("o1", item("p1", "1", 1, tt.total))
			res, err := Evaluate(rule, s)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEligible, res.Eligible)
			if tt.wantEligible {
				assert.True(t, d(tt.wantAmount).Equal(res.Amount), "amount = %s", res.Amount)
			}
		})
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	s := snapshot("o1",
		item("p1", "2", 11, "50"),
		item("p2", "1", 2, "40"),
	)
	rules := []Rule{
		mustBundle(t, "2", 6, 1),
		mustCheapest(t, "1", 2, "0.2"),
		mustThreshold(t, "100", "0.1"),
	}
	for _, rule := range rules {
		first, err := Evaluate(rule, s)
		require.NoError(t, err)
		second, err := Evaluate(rule, s)
		require.NoError(t, err)
		assert.Equal(t, first.Eligible, second.Eligible)
		assert.True(t, first.Amount.Equal(second.Amount))
		assert.Equal(t, first.Reason, second.Reason)
	}
}

func TestEvaluate_UnsupportedKind(t *testing.T) {
	_, err := Evaluate(Rule{Kind: Kind("bogus")}, snapshot("o1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported rule kind")
}
