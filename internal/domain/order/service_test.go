package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurt/order-discounts/internal/domain/discount"
	"github.com/ozanyurt/order-discounts/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	lastOrder *Order
	deleted   []string
	err       error
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.err
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestProduct(id, name, categoryID string, price string) product.Product {
	return product.Product{
		ID:         id,
		Name:       name,
		Price:      d(price),
		CategoryID: categoryID,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func testRules(t *testing.T) []discount.Rule {
	t.Helper()
	bundle, err := discount.NewBundleRule("2", 6, 1)
	require.NoError(t, err)
	cheapest, err := discount.NewCheapestInCategoryRule("1", 2, d("0.2"))
	require.NoError(t, err)
	threshold, err := discount.NewTotalThresholdRule(d("1000"), d("0.1"))
	require.NoError(t, err)
	return []discount.Rule{bundle, cheapest, threshold}
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, testRules(t))

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{CustomerID: "c1"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "1", "10")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{}, testRules(t))

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []NewItem{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, testRules(t))

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []NewItem{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_ComputesTotals(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "1", "10.00")
	p2 := newTestProduct("p2", "Gadget", "2", "20.00")
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1, p2), repo, testRules(t))

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items: []NewItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "c1", o.CustomerID)
	assert.True(t, d("40.00").Equal(o.Total))
	require.Len(t, o.Items, 2)
	assert.True(t, d("20.00").Equal(o.Items[0].Total))
	assert.True(t, d("10.00").Equal(o.Items[0].UnitPrice))
	assert.Same(t, o, repo.lastOrder)
}

func TestPlaceOrder_OrderCreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "1", "10")
	svc := NewService(
		newProductRepo(p1),
		&mockOrderRepo{err: errors.New("db write failed")},
		testRules(t),
	)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []NewItem{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestDelete(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(), repo, testRules(t))

	require.NoError(t, svc.Delete(context.Background(), "o1"))
	assert.Equal(t, []string{"o1"}, repo.deleted)
}

func TestDiscounts_EndToEnd(t *testing.T) {
	p1 := newTestProduct("p1", "Pen", "2", "30")
	p2 := newTestProduct("p2", "Desk", "1", "100")
	p3 := newTestProduct("p3", "Lamp", "1", "40")

	o := &Order{
		ID:         "o1",
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 12, UnitPrice: d("30"), Total: d("360")},
			{ProductID: "p2", Quantity: 9, UnitPrice: d("100"), Total: d("900")},
			{ProductID: "p3", Quantity: 1, UnitPrice: d("40"), Total: d("40")},
		},
		Total: d("1300"),
	}
	repo := &mockOrderRepo{byID: map[string]*Order{"o1": o}}
	svc := NewService(newProductRepo(p1, p2, p3), repo, testRules(t))

	report, err := svc.Discounts(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, "o1", report.OrderID)
	require.Len(t, report.Discounts, 3)
	assert.True(t, d("198").Equal(report.TotalDiscount))
	assert.True(t, d("1102").Equal(report.DiscountedTotal))
}

func TestDiscounts_OrderNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{byID: map[string]*Order{}}, testRules(t))

	_, err := svc.Discounts(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDiscounts_ProductGoneFromCatalog(t *testing.T) {
	o := &Order{
		ID:         "o1",
		CustomerID: "c1",
		Items:      []Item{{ProductID: "p1", Quantity: 1, UnitPrice: d("10"), Total: d("10")}},
		Total:      d("10"),
	}
	repo := &mockOrderRepo{byID: map[string]*Order{"o1": o}}
	svc := NewService(newProductRepo(), repo, testRules(t))

	_, err := svc.Discounts(context.Background(), "o1")
	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
}
