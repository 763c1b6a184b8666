package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"trustpay/internal/common"
	"trustpay/internal/domain/model"
	"trustpay/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EscrowService is the ledger: it owns validation and the authorization
// model for status transitions. The acting identity is always an explicit
// parameter; the repository's conditional updates enforce that only the
// named buyer or seller can move a record, and only out of a live state.
type EscrowService struct {
	escrowRepo repository.EscrowRepository
	cache      *redis.Client
	cacheTTL   time.Duration
}

func NewEscrowService(escrowRepo repository.EscrowRepository, cache *redis.Client, cacheTTL time.Duration) *EscrowService {
	return &EscrowService{escrowRepo: escrowRepo, cache: cache, cacheTTL: cacheTTL}
}

// decimalString accepts either a JSON string or a JSON number; the web
// client submits the raw form value, API callers tend to send numbers.
type decimalString string

func (d *decimalString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimalString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = decimalString(n.String())
	return nil
}

type CreateEscrowRequest struct {
	SellerEmail string        `json:"seller_email"`
	Amount      decimalString `json:"amount"`
	Description string        `json:"description"`
}

func (s *EscrowService) Create(ctx context.Context, identity model.Identity, req CreateEscrowRequest) (*model.Escrow, error) {
	if req.SellerEmail == "" || req.Amount == "" {
		return nil, fmt.Errorf("seller email and amount are required: %w", common.ErrBadRequest)
	}
	amount, err := strconv.ParseFloat(string(req.Amount), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, fmt.Errorf("amount must be a positive number: %w", common.ErrBadRequest)
	}

	escrow := &model.Escrow{
		ID:          uuid.NewString(),
		BuyerID:     identity.UserID,
		SellerEmail: req.SellerEmail,
		Amount:      strconv.FormatFloat(amount, 'f', 2, 64),
	}
	if req.Description != "" {
		escrow.Description = &req.Description
	}

	if err := s.escrowRepo.Insert(ctx, escrow); err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	return escrow, nil
}

// Accept transitions pending -> accepted for the escrow whose stored
// seller email matches the caller exactly.
func (s *EscrowService) Accept(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error) {
	escrow, err := s.escrowRepo.AcceptPending(ctx, escrowID, identity.Email)
	if err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	return escrow, nil
}

// Reject transitions pending -> rejected under the same guard as Accept.
func (s *EscrowService) Reject(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error) {
	escrow, err := s.escrowRepo.RejectPending(ctx, escrowID, identity.Email)
	if err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	return escrow, nil
}

// Cancel transitions pending -> cancelled for the owning buyer.
func (s *EscrowService) Cancel(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error) {
	if escrowID == "" {
		return nil, fmt.Errorf("escrow_id is required: %w", common.ErrBadRequest)
	}
	escrow, err := s.escrowRepo.CancelPending(ctx, escrowID, identity.UserID)
	if err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	return escrow, nil
}

// Release transitions accepted -> completed for the owning buyer. Like
// every other transition this is one conditional update: releasing an
// escrow the seller never accepted, or one already cancelled, reports
// the same collapsed not-found as any other failed transition.
func (s *EscrowService) Release(ctx context.Context, identity model.Identity, escrowID string) (*model.Escrow, error) {
	if escrowID == "" {
		return nil, fmt.Errorf("escrow_id is required: %w", common.ErrBadRequest)
	}
	escrow, err := s.escrowRepo.CompleteAccepted(ctx, escrowID, identity.UserID)
	if err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	return escrow, nil
}

func (s *EscrowService) ListForBuyer(ctx context.Context, identity model.Identity) ([]model.Escrow, error) {
	return s.escrowRepo.ListByBuyer(ctx, identity.UserID)
}

func (s *EscrowService) ListForSeller(ctx context.Context, identity model.Identity) ([]model.Escrow, error) {
	return s.escrowRepo.ListBySeller(ctx, identity.Email)
}

func (s *EscrowService) ListByStatus(ctx context.Context, statusStr string) ([]model.Escrow, error) {
	if statusStr == "" {
		return nil, fmt.Errorf("status query parameter is required: %w", common.ErrBadRequest)
	}
	status, err := model.ParseEscrowStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrBadRequest)
	}

	key := cacheKeyStatus + string(status)
	if escrows, ok := s.cachedList(ctx, key); ok {
		return escrows, nil
	}
	escrows, err := s.escrowRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	s.storeList(ctx, key, escrows)
	return escrows, nil
}

func (s *EscrowService) ListAll(ctx context.Context) ([]model.Escrow, error) {
	if escrows, ok := s.cachedList(ctx, cacheKeyAll); ok {
		return escrows, nil
	}
	escrows, err := s.escrowRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s.storeList(ctx, cacheKeyAll, escrows)
	return escrows, nil
}

const (
	cacheKeyAll    = "escrows:all"
	cacheKeyStatus = "escrows:status:"
)

var allCacheKeys = []string{
	cacheKeyAll,
	cacheKeyStatus + string(model.StatusPending),
	cacheKeyStatus + string(model.StatusAccepted),
	cacheKeyStatus + string(model.StatusRejected),
	cacheKeyStatus + string(model.StatusCancelled),
	cacheKeyStatus + string(model.StatusCompleted),
}

// The public list endpoints are the only reads without a caller scope, so
// they are the only ones cached. The cache is best effort: misses and
// redis failures fall through to the database, failures are logged only.

func (s *EscrowService) cachedList(ctx context.Context, key string) ([]model.Escrow, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("escrow cache read %s: %v", key, err)
		}
		return nil, false
	}
	var escrows []model.Escrow
	if err := json.Unmarshal(data, &escrows); err != nil {
		log.Printf("escrow cache decode %s: %v", key, err)
		return nil, false
	}
	return escrows, true
}

func (s *EscrowService) storeList(ctx context.Context, key string, escrows []model.Escrow) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(escrows)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		log.Printf("escrow cache write %s: %v", key, err)
	}
}

func (s *EscrowService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, allCacheKeys...).Err(); err != nil {
		log.Printf("escrow cache invalidate: %v", err)
	}
}
