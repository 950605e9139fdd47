// Package discount implements the pricing rule engine: a closed set of
// discount rules evaluated in order against a read-only order snapshot,
// producing a per-rule breakdown and a discounted total.
package discount

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is a read-only view of a single order line. CategoryID is a
// property of the product, denormalized onto the line so rules can match
// categories without a catalog lookup.
type LineItem struct {
	ProductID  string
	CategoryID string
	Quantity   int
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
}

// Snapshot is an immutable read-only view of an order. It is safe to share
// across concurrent evaluations.
type Snapshot struct {
	ID    string
	Total decimal.Decimal
	Items []LineItem
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// NegativePriceError indicates a line item with a negative unit price.
type NegativePriceError struct {
	ProductID string
}

func (e *NegativePriceError) Error() string {
	return fmt.Sprintf("unit price must not be negative for product %s", e.ProductID)
}

// LineTotalMismatchError indicates a line whose total is not quantity * unit price.
type LineTotalMismatchError struct {
	ProductID string
	Want      decimal.Decimal
	Got       decimal.Decimal
}

func (e *LineTotalMismatchError) Error() string {
	return fmt.Sprintf("line total for product %s is %s, expected %s", e.ProductID, e.Got, e.Want)
}

// TotalMismatchError indicates an order total that is not the sum of its line totals.
type TotalMismatchError struct {
	Total decimal.Decimal
	Sum   decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("order total is %s, line totals sum to %s", e.Total, e.Sum)
}

// MissingCategoryError indicates a line item without a category id while a
// category-scoped rule is in effect.
type MissingCategoryError struct {
	ProductID string
}

func (e *MissingCategoryError) Error() string {
	return fmt.Sprintf("product %s has no category id", e.ProductID)
}

// Validate checks the snapshot invariants: positive quantities, line totals
// equal to quantity * unit price, and an order total equal to the sum of
// line totals. A malformed snapshot is a caller contract violation and is
// rejected before any rule runs.
func (s Snapshot) Validate() error {
	sum := decimal.Zero
	for _, it := range s.Items {
		if it.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: it.ProductID}
		}
		if it.UnitPrice.IsNegative() {
			return &NegativePriceError{ProductID: it.ProductID}
		}
		want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if !it.Total.Equal(want) {
			return &LineTotalMismatchError{ProductID: it.ProductID, Want: want, Got: it.Total}
		}
		sum = sum.Add(it.Total)
	}
	if !s.Total.Equal(sum) {
		return &TotalMismatchError{Total: s.Total, Sum: sum}
	}
	return nil
}
