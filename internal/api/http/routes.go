package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// API bundles the handlers served under /api.
type API struct {
	Auth    *AuthMiddleware
	Leases  *LeaseHandler
	Ledger  *LedgerHandler
	Wallets *WalletHandler
}

// RegisterAPIRoutes registers the authenticated JSON API
func RegisterAPIRoutes(router *mux.Router, api API) {
	r := router.PathPrefix("/api").Subrouter()
	r.Use(api.Auth.Handler)

	r.HandleFunc("/leases", api.Leases.CreateLease).Methods(http.MethodPost)
	r.HandleFunc("/leases", api.Leases.ListLeases).Methods(http.MethodGet)
	r.HandleFunc("/leases/preview", api.Leases.Preview).Methods(http.MethodGet)
	r.HandleFunc("/leases/preview/all", api.Leases.PreviewAll).Methods(http.MethodGet)
	r.HandleFunc("/leases/{id:[0-9]+}", api.Leases.GetLease).Methods(http.MethodGet)
	r.HandleFunc("/leases/{id:[0-9]+}/close", api.Leases.CloseLease).Methods(http.MethodPut)
	r.HandleFunc("/users/{userId:[0-9]+}/leases/active", api.Leases.ListActiveLeases).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId:[0-9]+}/leases/closed", api.Leases.ListClosedLeases).Methods(http.MethodGet)

	r.HandleFunc("/ledger/{userId:[0-9]+}", api.Ledger.GetAccount).Methods(http.MethodGet)
	r.HandleFunc("/ledger/{userId:[0-9]+}/transactions", api.Ledger.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/ledger/{userId:[0-9]+}/transactions", api.Ledger.PostTransaction).Methods(http.MethodPost)

	r.HandleFunc("/wallets", api.Wallets.CreateWallet).Methods(http.MethodPost)
	r.HandleFunc("/wallets", api.Wallets.ListWallets).Methods(http.MethodGet)
	r.HandleFunc("/wallets/{id:[0-9]+}/transactions", api.Wallets.MoveFunds).Methods(http.MethodPost)
	r.HandleFunc("/wallets/{id:[0-9]+}/transactions", api.Wallets.GetHistory).Methods(http.MethodGet)
}
