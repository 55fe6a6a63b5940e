package http

import (
	"fmt"
	"net/http"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/service"

	"github.com/shopspring/decimal"
)

// LedgerHandler exposes users' USD ledger accounts
type LedgerHandler struct {
	ledgerSvc service.LedgerService
}

func NewLedgerHandler(ledgerSvc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

type postTransactionRequest struct {
	Type   domain.TransactionType `json:"type"`
	Amount decimal.Decimal        `json:"amount"`
}

func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := authorizeUser(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.ledgerSvc.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := authorizeUser(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.ledgerSvc.GetTransactions(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

// PostTransaction applies a posting. Account owners may only top up; admins
// may post any transaction type.
func (h *LedgerHandler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	claims, err := authorizeUser(r, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type != domain.TransactionTypeTopUp && !claims.IsAdmin() {
		writeError(w, r, fmt.Errorf("%w: only %s may be posted by the account owner", errForbidden, domain.TransactionTypeTopUp))
		return
	}

	tx, err := h.ledgerSvc.Post(r.Context(), userID, req.Type, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
