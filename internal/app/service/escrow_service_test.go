package service

import (
	"context"
	"testing"
	"time"

	"trustpay/internal/common"
	"trustpay/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEscrowRepo mimics the conditional-update semantics of the pg
// repository in memory: a transition succeeds only when id, acting party
// and current status all match, otherwise it reports the collapsed
// not-found error.
type fakeEscrowRepo struct {
	escrows map[string]*model.Escrow
}

func newFakeEscrowRepo() *fakeEscrowRepo {
	return &fakeEscrowRepo{escrows: map[string]*model.Escrow{}}
}

func (f *fakeEscrowRepo) Insert(ctx context.Context, e *model.Escrow) error {
	e.Status = model.StatusPending
	e.CreatedAt = time.Now()
	stored := *e
	f.escrows[e.ID] = &stored
	return nil
}

func (f *fakeEscrowRepo) FindByID(ctx context.Context, id string) (*model.Escrow, error) {
	e, ok := f.escrows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEscrowRepo) transition(id string, match func(*model.Escrow) bool, from, to model.EscrowStatus) (*model.Escrow, error) {
	e, ok := f.escrows[id]
	if !ok || !match(e) || e.Status != from {
		return nil, common.ErrNotFound
	}
	e.Status = to
	copied := *e
	return &copied, nil
}

func (f *fakeEscrowRepo) AcceptPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error) {
	return f.transition(id, func(e *model.Escrow) bool { return e.SellerEmail == sellerEmail },
		model.StatusPending, model.StatusAccepted)
}

func (f *fakeEscrowRepo) RejectPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error) {
	return f.transition(id, func(e *model.Escrow) bool { return e.SellerEmail == sellerEmail },
		model.StatusPending, model.StatusRejected)
}

func (f *fakeEscrowRepo) CancelPending(ctx context.Context, id, buyerID string) (*model.Escrow, error) {
	return f.transition(id, func(e *model.Escrow) bool { return e.BuyerID == buyerID },
		model.StatusPending, model.StatusCancelled)
}

func (f *fakeEscrowRepo) CompleteAccepted(ctx context.Context, id, buyerID string) (*model.Escrow, error) {
	return f.transition(id, func(e *model.Escrow) bool { return e.BuyerID == buyerID },
		model.StatusAccepted, model.StatusCompleted)
}

func (f *fakeEscrowRepo) ListByBuyer(ctx context.Context, buyerID string) ([]model.Escrow, error) {
	out := []model.Escrow{}
	for _, e := range f.escrows {
		if e.BuyerID == buyerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEscrowRepo) ListBySeller(ctx context.Context, sellerEmail string) ([]model.Escrow, error) {
	out := []model.Escrow{}
	for _, e := range f.escrows {
		if e.SellerEmail == sellerEmail {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEscrowRepo) ListByStatus(ctx context.Context, status model.EscrowStatus) ([]model.Escrow, error) {
	out := []model.Escrow{}
	for _, e := range f.escrows {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEscrowRepo) ListAll(ctx context.Context) ([]model.Escrow, error) {
	out := []model.Escrow{}
	for _, e := range f.escrows {
		out = append(out, *e)
	}
	return out, nil
}

var (
	buyer       = model.Identity{UserID: "buyer-1", Email: "b@x.com", Role: model.RoleBuyer}
	otherBuyer  = model.Identity{UserID: "buyer-2", Email: "b2@x.com", Role: model.RoleBuyer}
	seller      = model.Identity{UserID: "seller-1", Email: "s@x.com", Role: model.RoleSeller}
	otherSeller = model.Identity{UserID: "seller-2", Email: "s2@x.com", Role: model.RoleSeller}
)

func newEscrowService(repo *fakeEscrowRepo) *EscrowService {
	return NewEscrowService(repo, nil, time.Minute)
}

func createEscrow(t *testing.T, s *EscrowService) *model.Escrow {
	t.Helper()
	escrow, err := s.Create(context.Background(), buyer, CreateEscrowRequest{
		SellerEmail: seller.Email,
		Amount:      "1000",
		Description: "laptop",
	})
	require.NoError(t, err)
	return escrow
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	cases := []CreateEscrowRequest{
		{Amount: "100"},                          // missing seller email
		{SellerEmail: "s@x.com"},                 // missing amount
		{SellerEmail: "s@x.com", Amount: "abc"},  // not a number
		{SellerEmail: "s@x.com", Amount: "0"},    // zero
		{SellerEmail: "s@x.com", Amount: "-5"},   // negative
		{SellerEmail: "s@x.com", Amount: "NaN"},  // not finite
		{SellerEmail: "s@x.com", Amount: "+Inf"}, // not finite
	}
	for _, req := range cases {
		_, err := s.Create(context.Background(), buyer, req)
		assert.ErrorIs(t, err, common.ErrBadRequest, "request %+v", req)
	}
}

func TestCreate_Success(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	assert.NotEmpty(t, escrow.ID)
	assert.Equal(t, buyer.UserID, escrow.BuyerID)
	assert.Equal(t, seller.Email, escrow.SellerEmail)
	assert.Equal(t, "1000.00", escrow.Amount)
	assert.Equal(t, model.StatusPending, escrow.Status)
	require.NotNil(t, escrow.Description)
	assert.Equal(t, "laptop", *escrow.Description)
	assert.False(t, escrow.CreatedAt.IsZero())
}

func TestCreate_EmptyDescriptionIsNull(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow, err := s.Create(context.Background(), buyer, CreateEscrowRequest{
		SellerEmail: seller.Email,
		Amount:      "250.50",
	})
	require.NoError(t, err)
	assert.Nil(t, escrow.Description)
	assert.Equal(t, "250.50", escrow.Amount)
}

func TestAccept(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	accepted, err := s.Accept(context.Background(), seller, escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, accepted.Status)
}

func TestAccept_WrongSellerIndistinguishableFromMissing(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	_, errWrongSeller := s.Accept(context.Background(), otherSeller, escrow.ID)
	_, errMissing := s.Accept(context.Background(), seller, "no-such-id")

	require.ErrorIs(t, errWrongSeller, common.ErrNotFound)
	require.ErrorIs(t, errMissing, common.ErrNotFound)
	assert.Equal(t, errMissing.Error(), errWrongSeller.Error())
}

func TestReject(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	rejected, err := s.Reject(context.Background(), seller, escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	cancelled, err := s.Cancel(context.Background(), buyer, escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, err = s.Cancel(context.Background(), buyer, "")
	assert.ErrorIs(t, err, common.ErrBadRequest)

	escrow2 := createEscrow(t, s)
	_, err = s.Cancel(context.Background(), otherBuyer, escrow2.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRelease_RequiresAcceptedState(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	// Still pending: the seller has not accepted, so there is nothing
	// to release yet.
	_, err := s.Release(context.Background(), buyer, escrow.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.Accept(context.Background(), seller, escrow.ID)
	require.NoError(t, err)

	completed, err := s.Release(context.Background(), buyer, escrow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
}

func TestRelease_WrongBuyer(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)
	_, err := s.Accept(context.Background(), seller, escrow.ID)
	require.NoError(t, err)

	_, err = s.Release(context.Background(), otherBuyer, escrow.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNoTransitionLeavesTerminalState(t *testing.T) {
	t.Parallel()

	repo := newFakeEscrowRepo()
	s := newEscrowService(repo)

	terminalSetups := []func(t *testing.T) string{
		func(t *testing.T) string { // rejected
			e := createEscrow(t, s)
			_, err := s.Reject(context.Background(), seller, e.ID)
			require.NoError(t, err)
			return e.ID
		},
		func(t *testing.T) string { // cancelled
			e := createEscrow(t, s)
			_, err := s.Cancel(context.Background(), buyer, e.ID)
			require.NoError(t, err)
			return e.ID
		},
		func(t *testing.T) string { // completed
			e := createEscrow(t, s)
			_, err := s.Accept(context.Background(), seller, e.ID)
			require.NoError(t, err)
			_, err = s.Release(context.Background(), buyer, e.ID)
			require.NoError(t, err)
			return e.ID
		},
	}

	for _, setup := range terminalSetups {
		id := setup(t)
		before, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		require.True(t, before.Status.IsTerminal())

		_, errAccept := s.Accept(context.Background(), seller, id)
		_, errReject := s.Reject(context.Background(), seller, id)
		_, errCancel := s.Cancel(context.Background(), buyer, id)
		_, errRelease := s.Release(context.Background(), buyer, id)
		assert.ErrorIs(t, errAccept, common.ErrNotFound)
		assert.ErrorIs(t, errReject, common.ErrNotFound)
		assert.ErrorIs(t, errCancel, common.ErrNotFound)
		assert.ErrorIs(t, errRelease, common.ErrNotFound)

		after, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, before.Status, after.Status, "terminal status must not change")
	}
}

func TestListByStatus_Validation(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())

	_, err := s.ListByStatus(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = s.ListByStatus(context.Background(), "bogus")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestListByStatus(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	e1 := createEscrow(t, s)
	e2 := createEscrow(t, s)
	_, err := s.Accept(context.Background(), seller, e2.ID)
	require.NoError(t, err)

	pending, err := s.ListByStatus(context.Background(), "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e1.ID, pending[0].ID)

	accepted, err := s.ListByStatus(context.Background(), "accepted")
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, e2.ID, accepted[0].ID)
}

func TestListScopes(t *testing.T) {
	t.Parallel()

	s := newEscrowService(newFakeEscrowRepo())
	escrow := createEscrow(t, s)

	mine, err := s.ListForBuyer(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, escrow.ID, mine[0].ID)

	other, err := s.ListForBuyer(context.Background(), otherBuyer)
	require.NoError(t, err)
	assert.Empty(t, other)

	assigned, err := s.ListForSeller(context.Background(), seller)
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
