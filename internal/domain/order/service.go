package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ozanyurt/order-discounts/internal/domain/discount"
	"github.com/ozanyurt/order-discounts/internal/domain/product"
)

// PlaceOrderRequest holds the input for placing an order. Unit prices are
// resolved from the catalog, never taken from the caller.
type PlaceOrderRequest struct {
	CustomerID string
	Items      []NewItem
}

// NewItem is one requested line in a new order.
type NewItem struct {
	ProductID string
	Quantity  int
}

// Service encapsulates order management and discount computation.
type Service struct {
	products product.Repository
	orders   Repository
	rules    []discount.Rule
}

// NewService creates an order Service with the required domain dependencies.
// The rules are the fixed discount configuration applied to every order, in
// the given order.
func NewService(products product.Repository, orders Repository, rules []discount.Rule) *Service {
	return &Service{
		products: products,
		orders:   orders,
		rules:    rules,
	}
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// PlaceOrder validates the requested items, resolves prices from the catalog
// in a single batch, computes line and order totals, and persists the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Total:     lineTotal,
		}
		total = total.Add(lineTotal)
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Items:      items,
		Total:      total.Round(2),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Delete removes an order by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return nil
}

// Discounts loads the order, builds its read-only snapshot with category ids
// denormalized from the catalog, and runs the configured discount rules.
func (s *Service) Discounts(ctx context.Context, id string) (*discount.Report, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	snap, err := s.buildSnapshot(ctx, o)
	if err != nil {
		return nil, err
	}

	report, err := discount.Compute(snap, s.rules)
	if err != nil {
		return nil, errors.Wrap(err, "compute discounts")
	}
	return report, nil
}

// buildSnapshot maps the persisted order onto a discount snapshot, joining
// each line with its product's category.
func (s *Service) buildSnapshot(ctx context.Context, o *Order) (discount.Snapshot, error) {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return discount.Snapshot{}, errors.Wrap(err, "get products")
	}
	categories := make(map[string]string, len(fetched))
	for _, p := range fetched {
		categories[p.ID] = p.CategoryID
	}

	items := make([]discount.LineItem, len(o.Items))
	for i, item := range o.Items {
		category, ok := categories[item.ProductID]
		if !ok {
			return discount.Snapshot{}, &ProductNotFoundError{ProductID: item.ProductID}
		}
		items[i] = discount.LineItem{
			ProductID:  item.ProductID,
			CategoryID: category,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		}
	}

	return discount.Snapshot{
		ID:    o.ID,
		Total: o.Total,
		Items: items,
	}, nil
}
