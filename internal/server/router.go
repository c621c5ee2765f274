package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"invoiceflow/internal/handlers"
	"invoiceflow/internal/httpx"
	"invoiceflow/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, invSvc *services.InvoiceService, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// Lightweight DB check; detail stays out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ih := handlers.NewInvoiceHandler(invSvc)
	mux.HandleFunc("/invoices", listCreate(ih.List, ih.Create))
	mux.HandleFunc("/invoices/get", requireMethod(http.MethodGet, ih.Get))
	mux.HandleFunc("/invoices/update", requireMethod(http.MethodPost, ih.Update))
	mux.HandleFunc("/invoices/status", requireMethod(http.MethodPost, ih.Status))
	mux.HandleFunc("/invoices/delete", requireMethod(http.MethodPost, ih.Delete))
	mux.HandleFunc("/invoices/view", requireMethod(http.MethodPost, ih.View))

	th := handlers.NewItemHandler(services.NewItemService(db))
	mux.HandleFunc("/invoices/items", listCreate(th.List, th.Add))
	mux.HandleFunc("/items/update", requireMethod(http.MethodPost, th.Update))
	mux.HandleFunc("/items/delete", requireMethod(http.MethodPost, th.Delete))

	ph := handlers.NewPaymentHandler(services.NewPaymentService(db, invSvc))
	mux.HandleFunc("/payments", listCreate(ph.List, ph.Create))
	mux.HandleFunc("/payments/get", requireMethod(http.MethodGet, ph.Get))
	mux.HandleFunc("/payments/update", requireMethod(http.MethodPost, ph.Update))
	mux.HandleFunc("/payments/delete", requireMethod(http.MethodPost, ph.Delete))
	mux.HandleFunc("/payments/invoice", requireMethod(http.MethodGet, ph.ForInvoice))

	ch := handlers.NewClientHandler(services.NewClientService(db))
	mux.HandleFunc("/clients", listCreate(ch.List, ch.Create))
	mux.HandleFunc("/clients/get", requireMethod(http.MethodGet, ch.Get))
	mux.HandleFunc("/clients/update", requireMethod(http.MethodPost, ch.Update))
	mux.HandleFunc("/clients/delete", requireMethod(http.MethodPost, ch.Delete))

	rh := handlers.NewRecurrentBillHandler(services.NewRecurrentBillService(db, invSvc))
	mux.HandleFunc("/recurrent-bills", requireMethod(http.MethodPost, rh.Create))
	mux.HandleFunc("/recurrent-bills/generate", requireMethod(http.MethodPost, rh.Generate))

	ah := handlers.NewAnalyticsHandler(services.NewAnalyticsService(db, invSvc.Calculator()))
	mux.HandleFunc("/analytics/dashboard", requireMethod(http.MethodGet, ah.Dashboard))
	//revive:enable:unused-parameter

	return withRecover(withLogging(mux, log), log)
}

func listCreate(list, create http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
