package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func baseRouter(timeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// NewSalesRouter wires the sales backend surface: product admin plus the
// checkout and sales-log endpoints the POS calls.
func NewSalesRouter(sales *SalesHandler, products *ProductHandler, timeout time.Duration) chi.Router {
	r := baseRouter(timeout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Post("/", products.CreateProduct)
			r.Get("/{id}", products.GetProduct)
		})
		r.Group(func(r chi.Router) {
			r.Use(OperatorMiddleware)
			r.Route("/sales", func(r chi.Router) {
				r.Post("/checkout", sales.Checkout)
				r.Get("/", sales.ListSales)
				r.Get("/bill/{bill_id}", sales.GetBill)
				r.Delete("/{id}", sales.DeleteSale)
			})
		})
	})

	return r
}

// NewPOSRouter wires the operator-facing surface of the POS device.
func NewPOSRouter(pos *POSHandler, timeout time.Duration) chi.Router {
	r := baseRouter(timeout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", pos.GetCatalog)

		r.Group(func(r chi.Router) {
			r.Use(OperatorMiddleware)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", pos.GetCart)
				r.Delete("/", pos.ClearCart)
				r.Post("/items", pos.AddCartItem)
				r.Delete("/items/{product_id}", pos.RemoveCartItem)
			})
			r.Post("/checkout", pos.Checkout)
			r.Route("/bills", func(r chi.Router) {
				r.Get("/", pos.ListBills)
				r.Get("/last/receipt", pos.LastReceipt)
				r.Get("/{bill_id}/receipt", pos.BillReceipt)
			})
			r.Get("/journal/today", pos.JournalToday)
		})
	})

	return r
}
