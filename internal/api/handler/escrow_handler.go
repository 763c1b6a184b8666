package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"trustpay/internal/api/middleware"
	"trustpay/internal/app/service"
	"trustpay/internal/common"
	"trustpay/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type EscrowHandler struct {
	escrowService *service.EscrowService
}

func NewEscrowHandler(escrowService *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService}
}

// RegisterRoutes wires the escrow surface. The route paths match the
// original platform API so existing clients keep working.
func (h *EscrowHandler) RegisterRoutes(r chi.Router) {
	// Public reads
	r.Get("/all-escrows", h.listAll)
	r.Get("/escrows-by-status", h.listByStatus)

	// Authenticated reads
	r.Group(func(auth chi.Router) {
		auth.Use(middleware.Authenticator)
		auth.Get("/my-escrows", h.listMine)
		auth.Get("/buyer/escrows", h.listForBuyer)
		auth.Get("/seller-escrows", h.listForSeller)
	})

	// Buyer-side mutations
	r.Group(func(buyer chi.Router) {
		buyer.Use(middleware.Authenticator)
		buyer.Use(middleware.BuyerOnly)
		buyer.Post("/create-escrow", h.create)
		buyer.Post("/cancel-escrow", h.cancel)
		buyer.Post("/release-payment", h.release)
	})

	// Seller-side mutations
	r.Group(func(seller chi.Router) {
		seller.Use(middleware.Authenticator)
		seller.Use(middleware.SellerOnly)
		seller.Post("/escrow/{escrowID}/accept", h.accept)
		seller.Post("/escrow/{escrowID}/reject", h.reject)
	})
}

type escrowResponse struct {
	Message string        `json:"message"`
	Escrow  *model.Escrow `json:"escrow"`
}

type escrowListResponse struct {
	Message string         `json:"message"`
	Escrows []model.Escrow `json:"escrows"`
}

type escrowIDRequest struct {
	EscrowID string `json:"escrow_id"`
}

func (h *EscrowHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	escrow, err := h.escrowService.Create(r.Context(), identity, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, escrowResponse{
		Message: "Escrow created successfully",
		Escrow:  escrow,
	})
}

func (h *EscrowHandler) accept(w http.ResponseWriter, r *http.Request) {
	h.transitionByPath(w, r, "Escrow accepted successfully", h.escrowService.Accept)
}

func (h *EscrowHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.transitionByPath(w, r, "Escrow rejected successfully", h.escrowService.Reject)
}

func (h *EscrowHandler) transitionByPath(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error),
) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	escrowID := chi.URLParam(r, "escrowID")
	escrow, err := op(r.Context(), identity, escrowID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowResponse{Message: message, Escrow: escrow})
}

func (h *EscrowHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transitionByBody(w, r, "Escrow cancelled successfully", h.escrowService.Cancel)
}

func (h *EscrowHandler) release(w http.ResponseWriter, r *http.Request) {
	h.transitionByBody(w, r, "Payment released successfully", h.escrowService.Release)
}

func (h *EscrowHandler) transitionByBody(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error),
) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req escrowIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	escrow, err := op(r.Context(), identity, req.EscrowID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowResponse{Message: message, Escrow: escrow})
}

func (h *EscrowHandler) listMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	escrows, err := h.escrowService.ListForBuyer(r.Context(), identity)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowListResponse{
		Message: "Fetched your escrows successfully",
		Escrows: escrows,
	})
}

// listForBuyer returns the caller's escrows as a bare array, newest
// first. Same data as /my-escrows, shape kept for the dashboard client.
func (h *EscrowHandler) listForBuyer(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	escrows, err := h.escrowService.ListForBuyer(r.Context(), identity)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrows)
}

func (h *EscrowHandler) listForSeller(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	escrows, err := h.escrowService.ListForSeller(r.Context(), identity)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowListResponse{
		Message: "Fetched escrows assigned to you",
		Escrows: escrows,
	})
}

func (h *EscrowHandler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	escrows, err := h.escrowService.ListByStatus(r.Context(), status)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowListResponse{
		Message: "Escrows with status \"" + status + "\" fetched successfully",
		Escrows: escrows,
	})
}

func (h *EscrowHandler) listAll(w http.ResponseWriter, r *http.Request) {
	escrows, err := h.escrowService.ListAll(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, escrowListResponse{
		Message: "All escrows fetched successfully",
		Escrows: escrows,
	})
}
