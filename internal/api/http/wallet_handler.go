package http

import (
	"net/http"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/service"
)

// WalletHandler exposes the caller's crypto wallets
type WalletHandler struct {
	walletSvc service.WalletService
}

func NewWalletHandler(walletSvc service.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

type createWalletRequest struct {
	Alias    string          `json:"alias"`
	Currency domain.Currency `json:"currency"`
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.walletSvc.CreateWallet(r.Context(), claims.UserID, req.Alias, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wallet)
}

func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	wallets, err := h.walletSvc.ListWallets(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(wallets))
}

// MoveFunds converts between the caller's ledger balance and one of their wallets
func (h *WalletHandler) MoveFunds(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	walletID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var move domain.WalletMove
	if err := decodeJSON(r, &move); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.walletSvc.MoveFunds(r.Context(), claims.UserID, walletID, move)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	walletID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.walletSvc.GetHistory(r.Context(), claims.UserID, walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}
