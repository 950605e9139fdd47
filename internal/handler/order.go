package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/ozanyurt/order-discounts/internal/domain/discount"
	"github.com/ozanyurt/order-discounts/internal/domain/order"
)

// listOrders responds with every order and its line items.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		internalError(r, w, err)
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// createOrder decodes the request, places the order, and responds with the
// persisted order including server-side prices and totals.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateOrder(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	o, err := h.orderService.PlaceOrder(r.Context(), *req)
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusCreated, e)
}

// deleteOrder removes an order by id.
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderService.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orderDiscounts runs the discount engine for one order and responds with
// the discount report. The field names of this response are a compatibility
// contract and must not change.
func (h *Handler) orderDiscounts(w http.ResponseWriter, r *http.Request) {
	report, err := h.orderService.Discounts(r.Context(), r.PathValue("id"))
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeReport(e, report)
	writeJSON(w, http.StatusOK, e)
}

// mapOrderError converts domain errors to API error responses.
func (h *Handler) mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		var (
			iqErr  *order.InvalidQuantityError
			pnfErr *order.ProductNotFoundError
		)
		if errors.As(err, &iqErr) {
			writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
			return
		}
		if errors.As(err, &pnfErr) {
			writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
			return
		}
		internalError(r, w, err)
	}
}

// decodeCreateOrder parses {"customerId": ..., "items": [{"productId", "quantity"}]}.
func decodeCreateOrder(body io.Reader) (*order.PlaceOrderRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customerId":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "customerId")
			}
			req.CustomerID = v
			return nil
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var item order.NewItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "productId":
						v, err := d.Str()
						if err != nil {
							return errors.Wrap(err, "productId")
						}
						item.ProductID = v
						return nil
					case "quantity":
						v, err := d.Int()
						if err != nil {
							return errors.Wrap(err, "quantity")
						}
						item.Quantity = v
						return nil
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &req, nil
}

// encodeOrder writes one order in the list/create response shape.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("unitPrice")
		encodeDecimal(e, item.UnitPrice)
		e.FieldStart("total")
		encodeDecimal(e, item.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.ObjEnd()
}

// encodeReport writes the discount report contract:
// orderId, discounts[{discountReason, discountAmount, subTotal}],
// totalDiscount, discountedTotal. Only eligible rules appear, in
// evaluation order.
func encodeReport(e *jx.Encoder, report *discount.Report) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(report.OrderID)
	e.FieldStart("discounts")
	e.ArrStart()
	for _, outcome := range report.Discounts {
		e.ObjStart()
		e.FieldStart("discountReason")
		e.Str(outcome.Reason)
		e.FieldStart("discountAmount")
		encodeDecimal(e, outcome.Amount)
		e.FieldStart("subTotal")
		encodeDecimal(e, outcome.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalDiscount")
	encodeDecimal(e, report.TotalDiscount)
	e.FieldStart("discountedTotal")
	encodeDecimal(e, report.DiscountedTotal)
	e.ObjEnd()
}
