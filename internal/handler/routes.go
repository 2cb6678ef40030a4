package handler

import (
	"net/http"

	"github.com/segyhp/lending-engine/pkg/response"

	"github.com/gorilla/mux"
)

func SetupRoutes(billingHandler *BillingHandler, healthHandler *HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, "Method not allowed")
	})

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/loans", billingHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/approve", billingHandler.ApproveLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", billingHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", billingHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", billingHandler.MakePayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments", billingHandler.GetPayments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/journal", billingHandler.GetJournal).Methods("GET")
	api.HandleFunc("/penalties/accrue", billingHandler.AccruePenalties).Methods("POST")
	api.HandleFunc("/schedules/preview", billingHandler.PreviewSchedule).Methods("POST")
	api.HandleFunc("/ledger/accounts", billingHandler.ListAccounts).Methods("GET")

	return router
}
