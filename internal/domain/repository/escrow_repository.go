package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trustpay/internal/common"
	"trustpay/internal/domain/model"
)

// EscrowRepository owns the escrow rows and their status transitions.
// Every transition is a single conditional UPDATE so the database's
// row-level locking arbitrates concurrent attempts: at most one wins,
// losers see common.ErrNotFound.
type EscrowRepository interface {
	Insert(ctx context.Context, escrow *model.Escrow) error
	FindByID(ctx context.Context, id string) (*model.Escrow, error)

	AcceptPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error)
	RejectPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error)
	CancelPending(ctx context.Context, id, buyerID string) (*model.Escrow, error)
	CompleteAccepted(ctx context.Context, id, buyerID string) (*model.Escrow, error)

	ListByBuyer(ctx context.Context, buyerID string) ([]model.Escrow, error)
	ListBySeller(ctx context.Context, sellerEmail string) ([]model.Escrow, error)
	ListByStatus(ctx context.Context, status model.EscrowStatus) ([]model.Escrow, error)
	ListAll(ctx context.Context) ([]model.Escrow, error)
}

const escrowColumns = `id, buyer_id, seller_email, amount::text, description, status, created_at`

type pgEscrowRepository struct {
	db *sql.DB
}

func NewPgEscrowRepository(db *sql.DB) EscrowRepository {
	return &pgEscrowRepository{db: db}
}

func (r *pgEscrowRepository) Insert(ctx context.Context, e *model.Escrow) error {
	query := `INSERT INTO escrows (id, buyer_id, seller_email, amount, description)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING status, created_at`
	err := r.db.QueryRowContext(ctx, query, e.ID, e.BuyerID, e.SellerEmail, e.Amount, e.Description).
		Scan(&e.Status, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgEscrowRepository.Insert: %w", err)
	}
	return nil
}

func (r *pgEscrowRepository) FindByID(ctx context.Context, id string) (*model.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE id = $1`
	e, err := scanEscrow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEscrowRepository.FindByID: %w", err)
	}
	return e, nil
}

func (r *pgEscrowRepository) AcceptPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error) {
	query := `UPDATE escrows SET status = 'accepted'
	          WHERE id = $1 AND seller_email = $2 AND status = 'pending'
	          RETURNING ` + escrowColumns
	return r.transition(ctx, "AcceptPending", query, id, sellerEmail)
}

func (r *pgEscrowRepository) RejectPending(ctx context.Context, id, sellerEmail string) (*model.Escrow, error) {
	query := `UPDATE escrows SET status = 'rejected'
	          WHERE id = $1 AND seller_email = $2 AND status = 'pending'
	          RETURNING ` + escrowColumns
	return r.transition(ctx, "RejectPending", query, id, sellerEmail)
}

func (r *pgEscrowRepository) CancelPending(ctx context.Context, id, buyerID string) (*model.Escrow, error) {
	query := `UPDATE escrows SET status = 'cancelled'
	          WHERE id = $1 AND buyer_id = $2 AND status = 'pending'
	          RETURNING ` + escrowColumns
	return r.transition(ctx, "CancelPending", query, id, buyerID)
}

func (r *pgEscrowRepository) CompleteAccepted(ctx context.Context, id, buyerID string) (*model.Escrow, error) {
	query := `UPDATE escrows SET status = 'completed'
	          WHERE id = $1 AND buyer_id = $2 AND status = 'accepted'
	          RETURNING ` + escrowColumns
	return r.transition(ctx, "CompleteAccepted", query, id, buyerID)
}

// transition runs a conditional UPDATE ... RETURNING. Zero matched rows
// collapses to ErrNotFound: missing id, wrong party and wrong state are
// indistinguishable to the caller.
func (r *pgEscrowRepository) transition(ctx context.Context, op, query string, args ...interface{}) (*model.Escrow, error) {
	e, err := scanEscrow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEscrowRepository.%s: %w", op, err)
	}
	return e, nil
}

func (r *pgEscrowRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows
	          WHERE buyer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "ListByBuyer", query, buyerID)
}

func (r *pgEscrowRepository) ListBySeller(ctx context.Context, sellerEmail string) ([]model.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE seller_email = $1`
	return r.list(ctx, "ListBySeller", query, sellerEmail)
}

func (r *pgEscrowRepository) ListByStatus(ctx context.Context, status model.EscrowStatus) ([]model.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE status = $1`
	return r.list(ctx, "ListByStatus", query, string(status))
}

func (r *pgEscrowRepository) ListAll(ctx context.Context) ([]model.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows`
	return r.list(ctx, "ListAll", query)
}

func (r *pgEscrowRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Escrow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgEscrowRepository.%s: %w", op, err)
	}
	defer rows.Close()

	escrows := []model.Escrow{}
	for rows.Next() {
		e := model.Escrow{}
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.SellerEmail, &e.Amount, &e.Description, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgEscrowRepository.%s: %w", op, err)
		}
		escrows = append(escrows, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgEscrowRepository.%s: %w", op, err)
	}
	return escrows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEscrow(row rowScanner) (*model.Escrow, error) {
	e := &model.Escrow{}
	err := row.Scan(&e.ID, &e.BuyerID, &e.SellerEmail, &e.Amount, &e.Description, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
