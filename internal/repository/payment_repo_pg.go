package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	// GetBySessionForUpdate locks the payment row until the surrounding
	// transaction ends.
	GetBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Payment, error)
	GetByIntent(ctx context.Context, intentID string) (*domain.Payment, error)
	MarkPaid(ctx context.Context, id int64, intentID string, amount decimal.Decimal, currency string) error
	Transition(ctx context.Context, id int64, from, to domain.PaymentStatus) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const uniqueViolation = "23505"

const paymentColumns = `id, user_id, order_id, stripe_session_id, stripe_payment_intent, amount, currency, status, created_at, updated_at, expires_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.OrderID, &p.SessionID, &p.PaymentIntentID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}
	row := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO payments (user_id, order_id, stripe_session_id, amount, currency, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		payment.UserID, payment.OrderID, payment.SessionID, payment.Amount, payment.Currency, payment.Status, payment.ExpiresAt)
	if err := row.Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PGPaymentRepository) GetBySessionForUpdate(ctx context.Context, sessionID string) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_session_id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "payment", ID: sessionID}
		}
		return nil, err
	}
	return p, nil
}

func (r *PGPaymentRepository) GetByIntent(ctx context.Context, intentID string) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_payment_intent = $1`, intentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "payment", ID: intentID}
		}
		return nil, err
	}
	return p, nil
}

func (r *PGPaymentRepository) MarkPaid(ctx context.Context, id int64, intentID string, amount decimal.Decimal, currency string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE payments
		SET status = $1, stripe_payment_intent = NULLIF($2, ''), amount = $3, currency = $4, updated_at = now()
		WHERE id = $5 AND status = $6`,
		domain.PaymentStatusPaid, intentID, amount, currency, id, domain.PaymentStatusPending)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.ConflictError{Resource: "payment", IDs: []int64{id}, Reason: "payment intent already recorded"}
		}
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConflictError{Resource: "payment", IDs: []int64{id}, Reason: "payment is no longer pending"}
	}
	return nil
}

func (r *PGPaymentRepository) Transition(ctx context.Context, id int64, from, to domain.PaymentStatus) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE payments SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGPaymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
