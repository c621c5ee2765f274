package handlers

import (
	"net/http"

	"invoiceflow/internal/httpx"
	"invoiceflow/internal/services"
)

type PaymentHandler struct {
	Svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

// List: GET /payments?page=&limit=
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	payments, pagination, err := h.Svc.List(page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments, "pagination": pagination})
}

// Create: POST /payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentCreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	payment, err := h.Svc.Create(in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// Get: GET /payments/get?id=
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.Svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Update: POST /payments/update?id=
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in services.PaymentUpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	payment, err := h.Svc.Update(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Delete: POST /payments/delete?id=
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ForInvoice: GET /payments/invoice?invoice_id=
func (h *PaymentHandler) ForInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := idParam(w, r, "invoice_id")
	if !ok {
		return
	}
	payments, err := h.Svc.ForInvoice(invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments})
}
