package handlers

import (
	"net/http"

	"invoiceflow/internal/httpx"
	"invoiceflow/internal/services"
)

type ItemHandler struct {
	Svc *services.ItemService
}

func NewItemHandler(svc *services.ItemService) *ItemHandler {
	return &ItemHandler{Svc: svc}
}

// List: GET /invoices/items?invoice_id=
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := idParam(w, r, "invoice_id")
	if !ok {
		return
	}
	items, err := h.Svc.ForInvoice(invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// Add: POST /invoices/items?invoice_id=
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := idParam(w, r, "invoice_id")
	if !ok {
		return
	}
	var in services.ItemInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	item, err := h.Svc.Add(invoiceID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// Update: POST /items/update?id=
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in services.ItemUpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	item, err := h.Svc.Update(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// Delete: POST /items/delete?id=&allow_last=1
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(id, boolParam(r, "allow_last")); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
