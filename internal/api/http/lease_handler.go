package http

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/service"
)

// LeaseHandler exposes the lease engine
type LeaseHandler struct {
	leaseSvc service.LeaseService
}

func NewLeaseHandler(leaseSvc service.LeaseService) *LeaseHandler {
	return &LeaseHandler{leaseSvc: leaseSvc}
}

type createLeaseRequest struct {
	PlanID int64 `json:"plan_id"`
}

// CreateLease opens a lease on the requested plan for the caller
func (h *LeaseHandler) CreateLease(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createLeaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PlanID <= 0 {
		writeError(w, r, fmt.Errorf("%w: plan_id is required", errBadRequest))
		return
	}

	lease, err := h.leaseSvc.CreateLease(r.Context(), req.PlanID, claims.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lease)
}

// ListLeases returns every lease, optionally filtered by ?status= (admin only)
func (h *LeaseHandler) ListLeases(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}
	status := domain.LeaseStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && status != domain.LeaseStatusOpen && status != domain.LeaseStatusClosed {
		writeError(w, r, fmt.Errorf("%w: unknown lease status %q", errBadRequest, status))
		return
	}

	leases, err := h.leaseSvc.ListLeases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status != "" {
		leases = slices.DeleteFunc(leases, func(l domain.Lease) bool { return l.Status != status })
	}
	writeJSON(w, http.StatusOK, nonNil(leases))
}

// GetLease returns a lease to its owner or an admin
func (h *LeaseHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lease, err := h.leaseSvc.GetLease(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := authorizeUser(r, lease.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lease)
}

// CloseLease settles a lease early (admin only)
func (h *LeaseHandler) CloseLease(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lease, err := h.leaseSvc.CloseLease(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lease)
}

func (h *LeaseHandler) ListActiveLeases(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := authorizeUser(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	leases, err := h.leaseSvc.ListActiveLeases(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leases))
}

func (h *LeaseHandler) ListClosedLeases(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := authorizeUser(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	leases, err := h.leaseSvc.ListClosedLeases(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leases))
}

// Preview quotes one plan. Admins also see the platform revenue.
func (h *LeaseHandler) Preview(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	planID, err := strconv.ParseInt(r.URL.Query().Get("plan_id"), 10, 64)
	if err != nil || planID <= 0 {
		writeError(w, r, fmt.Errorf("%w: plan_id query parameter is required", errBadRequest))
		return
	}

	if claims.IsAdmin() {
		preview, err := h.leaseSvc.PreviewAdmin(r.Context(), planID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)
		return
	}
	preview, err := h.leaseSvc.PreviewUser(r.Context(), planID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *LeaseHandler) PreviewAll(w http.ResponseWriter, r *http.Request) {
	claims, err := callerFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if claims.IsAdmin() {
		previews, err := h.leaseSvc.PreviewAllAdmin(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, previews)
		return
	}
	previews, err := h.leaseSvc.PreviewAllUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
