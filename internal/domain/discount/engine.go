package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Outcome records one eligible rule in the report: its reason, its amount,
// and the running subtotal after this rule and all prior eligible rules.
type Outcome struct {
	Reason   string
	Amount   decimal.Decimal
	Subtotal decimal.Decimal
}

// Report is the aggregate discount breakdown for one order. Discounts lists
// only eligible rules, in evaluation order.
type Report struct {
	OrderID         string
	Discounts       []Outcome
	TotalDiscount   decimal.Decimal
	DiscountedTotal decimal.Decimal
}

// Compute runs the rules in the given order against the snapshot and
// assembles the report. The snapshot is validated first; a malformed
// snapshot is rejected before any rule runs.
//
// Rule amounts are independent of application order (each is computed from
// the original snapshot), so the order matters only for the running
// subtotal ledger in the report. DiscountedTotal is always
// Total - TotalDiscount and equals the final ledger value.
func Compute(s Snapshot, rules []Rule) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, r := range rules {
		if !r.categoryScoped() {
			continue
		}
		for _, it := range s.Items {
			if it.CategoryID == "" {
				return nil, &MissingCategoryError{ProductID: it.ProductID}
			}
		}
		break
	}

	report := &Report{
		OrderID:         s.ID,
		TotalDiscount:   decimal.Zero,
		DiscountedTotal: s.Total,
	}
	subtotal := s.Total
	for _, r := range rules {
		res, err := Evaluate(r, s)
		if err != nil {
			return nil, errors.Wrap(err, "evaluate rule")
		}
		if !res.Eligible {
			continue
		}
		subtotal = subtotal.Sub(res.Amount)
		report.TotalDiscount = report.TotalDiscount.Add(res.Amount)
		report.Discounts = append(report.Discounts, Outcome{
			Reason:   res.Reason,
			Amount:   res.Amount,
			Subtotal: subtotal,
		})
	}
	report.DiscountedTotal = s.Total.Sub(report.TotalDiscount)
	return report, nil
}
