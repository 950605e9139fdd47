package discount

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount rule variants.
type Kind string

const (
	// KindBundle grants free units per product: buy N of a product in a
	// category, get M of the same product free.
	KindBundle Kind = "bundle"
	// KindCheapestPercent discounts one unit of the cheapest product in a
	// category once enough units of that category are purchased.
	KindCheapestPercent Kind = "cheapest_percent"
	// KindTotalThreshold discounts the whole order once its total clears a
	// minimum spend.
	KindTotalThreshold Kind = "total_threshold"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Rule is a single pricing rule with its fixed numeric parameters. Rules are
// immutable after construction; use the New*Rule constructors, which reject
// parameters that cannot produce a sane amount.
//
// Which parameter fields are meaningful depends on Kind. Rule amounts are
// always computed from the original, undiscounted order data: application
// order affects only the reporting ledger, never the amounts.
type Rule struct {
	Kind       Kind
	CategoryID string

	// Bundle parameters.
	BuyQuantity  int
	FreeQuantity int

	// Cheapest-in-category parameters.
	MinQuantity int

	// Percent is a fraction in [0, 1], shared by the percentage variants.
	Percent decimal.Decimal

	// Threshold is the minimum order total for KindTotalThreshold.
	Threshold decimal.Decimal
}

// Result is the outcome of evaluating one rule against a snapshot.
// Amount and Reason are meaningful only when Eligible is true.
type Result struct {
	Eligible bool
	Amount   decimal.Decimal
	Reason   string
}

// NewBundleRule builds a "buy buyQty of a product in category categoryID,
// get freeQty of the same product free" rule. Free units are granted per
// product, not pooled across the category.
func NewBundleRule(categoryID string, buyQty, freeQty int) (Rule, error) {
	if categoryID == "" {
		return Rule{}, errors.New("bundle rule: category id required")
	}
	if buyQty <= 0 || freeQty <= 0 {
		return Rule{}, errors.Errorf("bundle rule: quantities must be positive, got buy=%d free=%d", buyQty, freeQty)
	}
	return Rule{
		Kind:         KindBundle,
		CategoryID:   categoryID,
		BuyQuantity:  buyQty,
		FreeQuantity: freeQty,
	}, nil
}

// NewCheapestInCategoryRule builds a rule that discounts one unit of the
// cheapest product in categoryID by percent (a fraction in [0, 1]) once at
// least minQty units of that category are in the order.
func NewCheapestInCategoryRule(categoryID string, minQty int, percent decimal.Decimal) (Rule, error) {
	if categoryID == "" {
		return Rule{}, errors.New("cheapest rule: category id required")
	}
	if minQty <= 0 {
		return Rule{}, errors.Errorf("cheapest rule: min quantity must be positive, got %d", minQty)
	}
	if err := checkPercent(percent); err != nil {
		return Rule{}, errors.Wrap(err, "cheapest rule")
	}
	return Rule{
		Kind:        KindCheapestPercent,
		CategoryID:  categoryID,
		MinQuantity: minQty,
		Percent:     percent,
	}, nil
}

// NewTotalThresholdRule builds a rule that discounts the whole order by
// percent (a fraction in [0, 1]) once the order total reaches threshold.
func NewTotalThresholdRule(threshold, percent decimal.Decimal) (Rule, error) {
	if threshold.IsNegative() {
		return Rule{}, errors.Errorf("threshold rule: threshold must not be negative, got %s", threshold)
	}
	if err := checkPercent(percent); err != nil {
		return Rule{}, errors.Wrap(err, "threshold rule")
	}
	return Rule{
		Kind:      KindTotalThreshold,
		Percent:   percent,
		Threshold: threshold,
	}, nil
}

func checkPercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(one) {
		return errors.Errorf("percent must be within [0, 1], got %s", p)
	}
	return nil
}

// categoryScoped reports whether the rule matches against line item categories.
func (r Rule) categoryScoped() bool {
	return r.Kind == KindBundle || r.Kind == KindCheapestPercent
}

// Evaluate runs a single rule against the snapshot and returns its result.
// Evaluation is a pure function of the rule parameters and the original
// snapshot: it never looks at previously applied discounts.
func Evaluate(r Rule, s Snapshot) (Result, error) {
	switch r.Kind {
	case KindBundle:
		return evalBundle(r, s), nil
	case KindCheapestPercent:
		return evalCheapestPercent(r, s), nil
	case KindTotalThreshold:
		return evalTotalThreshold(r, s), nil
	default:
		return Result{}, errors.Errorf("unsupported rule kind: %q", r.Kind)
	}
}

// evalBundle grants floor(quantity/buyQty)*freeQty free units per qualifying
// line item. The free unit must be the same product, so quantities are never
// pooled across different products in the category.
func evalBundle(r Rule, s Snapshot) Result {
	amount := decimal.Zero
	var parts []string
	for _, it := range s.Items {
		if it.CategoryID != r.CategoryID || it.Quantity < r.BuyQuantity {
			continue
		}
		freeUnits := (it.Quantity / r.BuyQuantity) * r.FreeQuantity
		amount = amount.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(freeUnits))))
		parts = append(parts, fmt.Sprintf("%d x product %s grants %d free", it.Quantity, it.ProductID, freeUnits))
	}
	if len(parts) == 0 {
		return Result{}
	}
	return Result{
		Eligible: true,
		Amount:   amount.Round(2),
		Reason: fmt.Sprintf("Buy %d get %d free in category %s: %s",
			r.BuyQuantity, r.FreeQuantity, r.CategoryID, strings.Join(parts, ", ")),
	}
}

// evalCheapestPercent discounts exactly one unit of the cheapest product in
// the category. Ties on unit price resolve to the first item in order.
func evalCheapestPercent(r Rule, s Snapshot) Result {
	var (
		cheapest *LineItem
		totalQty int
	)
	for i, it := range s.Items {
		if it.CategoryID != r.CategoryID {
			continue
		}
		totalQty += it.Quantity
		if cheapest == nil || it.UnitPrice.LessThan(cheapest.UnitPrice) {
			cheapest = &s.Items[i]
		}
	}
	if cheapest == nil || totalQty < r.MinQuantity {
		return Result{}
	}
	return Result{
		Eligible: true,
		Amount:   cheapest.UnitPrice.Mul(r.Percent).Round(2),
		Reason: fmt.Sprintf("%s%% off the cheapest product in category %s: product %s",
			r.Percent.Mul(hundred), r.CategoryID, cheapest.ProductID),
	}
}

// evalTotalThreshold discounts the original order total, not the running
// subtotal left by earlier rules.
func evalTotalThreshold(r Rule, s Snapshot) Result {
	if s.Total.LessThan(r.Threshold) {
		return Result{}
	}
	return Result{
		Eligible: true,
		Amount:   s.Total.Mul(r.Percent).Round(2),
		Reason: fmt.Sprintf("%s%% off orders of %s or more",
			r.Percent.Mul(hundred), r.Threshold),
	}
}
