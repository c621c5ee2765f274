package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/httpx"
)

// writeError maps a service error onto the wire: not-found 404,
// validation 422, conflict 409, anything else 500 with the detail kept
// out of the body.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := http.StatusInternalServerError
		switch ae.Kind {
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindValidation:
			status = http.StatusUnprocessableEntity
		case apperr.KindConflict:
			status = http.StatusConflict
		}
		httpx.JSON(w, status, httpx.ErrorResponse{Error: ae.Message, Code: ae.Code, Details: ae.Details})
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

// idParam reads a positive integer query parameter, writing a 400 on
// failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_"+name, nil)
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_"+name, nil)
		return 0, false
	}
	return uint(n), true
}

// pageParams reads page/limit with defaults; range errors surface from
// the service layer.
func pageParams(r *http.Request) (int, int) {
	page, limit := 1, 50
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return page, limit
}

func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true" || v == "yes"
}
