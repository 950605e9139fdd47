package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// listProducts responds with the full product catalog.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		internalError(r, w, err)
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("price")
		encodeDecimal(e, p.Price)
		e.FieldStart("categoryId")
		e.Str(p.CategoryID)
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}
