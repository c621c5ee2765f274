package handlers

import (
	"net/http"
	"strconv"

	"invoiceflow/internal/httpx"
	"invoiceflow/internal/models"
	"invoiceflow/internal/services"
)

type ClientHandler struct {
	Svc *services.ClientService
}

func NewClientHandler(svc *services.ClientService) *ClientHandler {
	return &ClientHandler{Svc: svc}
}

// List: GET /clients?page=&limit=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	clients, pagination, err := h.Svc.List(page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "pagination": pagination})
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ClientCreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	client, err := h.Svc.Create(in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Get: GET /clients/get?id=
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	client, err := h.Svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Update: POST /clients/update?id=
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in services.ClientUpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	client, err := h.Svc.Update(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete: POST /clients/delete?id=
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// RecurrentBillHandler serves subscription billing templates and the
// manual invoice-generation trigger.
type RecurrentBillHandler struct {
	Svc *services.RecurrentBillService
}

func NewRecurrentBillHandler(svc *services.RecurrentBillService) *RecurrentBillHandler {
	return &RecurrentBillHandler{Svc: svc}
}

// Create: POST /recurrent-bills
func (h *RecurrentBillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RecurrentBillInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	bill, err := h.Svc.Create(in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

// Generate: POST /recurrent-bills/generate?id=&client_type=
func (h *RecurrentBillHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	clientType := models.ClientTypeIndividual
	if v := r.URL.Query().Get("client_type"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_client_type", nil)
			return
		}
		clientType = n
	}
	inv, err := h.Svc.GenerateInvoice(id, clientType)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
