//go:build integration

package integration

import (
	"math"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{Items: []orderItemRequest{}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != http.StatusBadRequest {
		t.Errorf("error code: got %d, want 400", errResp.Code)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Items: []orderItemRequest{{ProductID: "no-such-product", Quantity: 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Items: []orderItemRequest{{ProductID: "p-pen-01", Quantity: 0}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_ComputesTotals(t *testing.T) {
	order := placeOrder(t, orderRequest{
		CustomerID: "cust-totals",
		Items: []orderItemRequest{
			{ProductID: "p-pen-01", Quantity: 2},  // 2 x 30.00
			{ProductID: "p-lamp-01", Quantity: 1}, // 1 x 40.00
		},
	})

	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a UUID", order.ID)
	}
	if order.CustomerID != "cust-totals" {
		t.Errorf("customerId: got %q", order.CustomerID)
	}
	if !approxEq(order.Total, 100) {
		t.Errorf("total: got %v, want 100", order.Total)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if !approxEq(order.Items[0].UnitPrice, 30) || !approxEq(order.Items[0].Total, 60) {
		t.Errorf("first line: %+v", order.Items[0])
	}
}

func TestListOrders_IncludesCreated(t *testing.T) {
	created := placeOrder(t, orderRequest{
		Items: []orderItemRequest{{ProductID: "p-cable-01", Quantity: 1}},
	})

	resp := doGet(t, "/api/orders")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	for _, o := range orders {
		if o.ID == created.ID {
			return
		}
	}
	t.Fatalf("order %s not found in list of %d orders", created.ID, len(orders))
}

func TestDeleteOrder(t *testing.T) {
	created := placeOrder(t, orderRequest{
		Items: []orderItemRequest{{ProductID: "p-notebook-01", Quantity: 1}},
	})

	resp := doDelete(t, "/api/orders/"+created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	// Deleting again reports not found.
	resp = doDelete(t, "/api/orders/"+created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", resp.StatusCode)
	}

	// So does asking for the discounts of a deleted order.
	resp = doGet(t, "/api/orders/"+created.ID+"/discounts")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("discounts after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestOrderDiscounts_AllRulesApply(t *testing.T) {
	// 12 x Gel Pen (cat 2, 30.00)  = 360.00  -> buy 6 get 1 free grants 2 free pens
	// 9 x Oak Desk (cat 1, 100.00) = 900.00
	// 1 x Brass Lamp (cat 1, 40.00) = 40.00  -> cheapest in cat 1, 20% off one unit
	// Order total 1300.00 >= 1000 -> 10% off the whole order.
	created := placeOrder(t, orderRequest{
		CustomerID: "cust-discounts",
		Items: []orderItemRequest{
			{ProductID: "p-pen-01", Quantity: 12},
			{ProductID: "p-desk-01", Quantity: 9},
			{ProductID: "p-lamp-01", Quantity: 1},
		},
	})
	if !approxEq(created.Total, 1300) {
		t.Fatalf("order total: got %v, want 1300", created.Total)
	}

	resp := doGet(t, "/api/orders/"+created.ID+"/discounts")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	report := decodeJSON[discountReport](t, resp)
	if report.OrderID != created.ID {
		t.Errorf("orderId: got %q, want %q", report.OrderID, created.ID)
	}
	if len(report.Discounts) != 3 {
		t.Fatalf("expected 3 discounts, got %d: %+v", len(report.Discounts), report.Discounts)
	}

	wantAmounts := []float64{60, 8, 130}
	wantSubTotals := []float64{1240, 1232, 1102}
	for i, entry := range report.Discounts {
		if entry.DiscountReason == "" {
			t.Errorf("discount %d has empty reason", i)
		}
		if !approxEq(entry.DiscountAmount, wantAmounts[i]) {
			t.Errorf("discount %d amount: got %v, want %v", i, entry.DiscountAmount, wantAmounts[i])
		}
		if !approxEq(entry.SubTotal, wantSubTotals[i]) {
			t.Errorf("discount %d subTotal: got %v, want %v", i, entry.SubTotal, wantSubTotals[i])
		}
	}

	if !strings.Contains(report.Discounts[0].DiscountReason, "Buy 6 get 1 free") {
		t.Errorf("first reason: %q", report.Discounts[0].DiscountReason)
	}
	if !strings.Contains(report.Discounts[1].DiscountReason, "cheapest") {
		t.Errorf("second reason: %q", report.Discounts[1].DiscountReason)
	}

	if !approxEq(report.TotalDiscount, 198) {
		t.Errorf("totalDiscount: got %v, want 198", report.TotalDiscount)
	}
	if !approxEq(report.DiscountedTotal, 1102) {
		t.Errorf("discountedTotal: got %v, want 1102", report.DiscountedTotal)
	}
}

func TestOrderDiscounts_NoEligibleRules(t *testing.T) {
	// A single cable: no category rule matches and the total is far below
	// the threshold.
	created := placeOrder(t, orderRequest{
		Items: []orderItemRequest{{ProductID: "p-cable-01", Quantity: 1}},
	})

	resp := doGet(t, "/api/orders/"+created.ID+"/discounts")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	report := decodeJSON[discountReport](t, resp)
	if len(report.Discounts) != 0 {
		t.Errorf("expected no discounts, got %+v", report.Discounts)
	}
	if !approxEq(report.TotalDiscount, 0) {
		t.Errorf("totalDiscount: got %v, want 0", report.TotalDiscount)
	}
	if !approxEq(report.DiscountedTotal, created.Total) {
		t.Errorf("discountedTotal: got %v, want %v", report.DiscountedTotal, created.Total)
	}
}

func TestOrderDiscounts_UnknownOrder(t *testing.T) {
	resp := doGet(t, "/api/orders/00000000-0000-4000-8000-000000000000/discounts")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
