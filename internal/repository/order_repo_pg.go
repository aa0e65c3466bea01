package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ExpireScope narrows an expiry sweep. Zero fields match every order.
type ExpireScope struct {
	UserID  int64
	OrderID int64
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	BookTickets(ctx context.Context, orderID int64, ticketIDs []int64) ([]domain.Ticket, error)
	SetAmount(ctx context.Context, orderID int64, amount decimal.Decimal) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, statuses []domain.OrderStatus) ([]domain.Order, error)
	ExpireStale(ctx context.Context, now time.Time, scope ExpireScope) ([]int64, error)
	Transition(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error)
	ReleaseTickets(ctx context.Context, orderIDs []int64) error
}

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

const orderColumns = `id, user_id, amount, currency, payment_method, status, created_at, updated_at, expires_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Amount, &o.Currency, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.Status == "" {
		order.Status = domain.OrderStatusBooked
	}
	row := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO orders (user_id, amount, currency, payment_method, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.Amount, order.Currency, order.PaymentMethod, order.Status, order.ExpiresAt)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// BookTickets flips the requested tickets from available to booked for the
// order. Tickets that are not available are left alone and simply missing from
// the result, so callers compare lengths to detect conflicts.
func (r *PGOrderRepository) BookTickets(ctx context.Context, orderID int64, ticketIDs []int64) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `UPDATE tickets t
		SET status = $1, order_id = $2
		FROM flights f
		WHERE f.id = t.flight_id AND t.id = ANY($3) AND t.status = $4
		RETURNING t.id, t.flight_id, f.number, t.seat_number, t.price, t.status, t.order_id`,
		domain.TicketStatusBooked, orderID, ticketIDs, domain.TicketStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("book tickets: %w", err)
	}
	return collectTickets(rows)
}

func (r *PGOrderRepository) SetAmount(ctx context.Context, orderID int64, amount decimal.Decimal) error {
	_, err := conn(ctx, r.db).Exec(ctx, `UPDATE orders SET amount = $1, updated_at = now() WHERE id = $2`, amount, orderID)
	return err
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(conn(ctx, r.db).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "order", ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}

	tickets, err := r.ticketsFor(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Tickets = tickets[o.ID]
	return o, nil
}

func (r *PGOrderRepository) ListByUser(ctx context.Context, userID int64, statuses []domain.OrderStatus) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1`
	args := []any{userID}
	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, string(s))
		}
		q += ` AND status = ANY($2)`
		args = append(args, names)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	tickets, err := r.ticketsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Tickets = tickets[orders[i].ID]
	}
	return orders, nil
}

// ExpireStale moves booked orders whose hold ended at or before now to expired
// and returns their ids. The conditional update makes concurrent sweeps expire
// each order once.
func (r *PGOrderRepository) ExpireStale(ctx context.Context, now time.Time, scope ExpireScope) ([]int64, error) {
	q := `UPDATE orders SET status = $1, updated_at = now() WHERE status = $2 AND expires_at <= $3`
	args := []any{domain.OrderStatusExpired, domain.OrderStatusBooked, now}
	if scope.UserID != 0 {
		args = append(args, scope.UserID)
		q += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	if scope.OrderID != 0 {
		args = append(args, scope.OrderID)
		q += fmt.Sprintf(` AND id = $%d`, len(args))
	}
	q += ` RETURNING id`

	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("expire orders: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *PGOrderRepository) Transition(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGOrderRepository) ReleaseTickets(ctx context.Context, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	_, err := conn(ctx, r.db).Exec(ctx, `UPDATE tickets SET status = $1, order_id = NULL WHERE order_id = ANY($2) AND status = $3`,
		domain.TicketStatusAvailable, orderIDs, domain.TicketStatusBooked)
	if err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	return nil
}

func (r *PGOrderRepository) ticketsFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.Ticket, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT t.id, t.flight_id, f.number, t.seat_number, t.price, t.status, t.order_id
		FROM tickets t JOIN flights f ON f.id = t.flight_id
		WHERE t.order_id = ANY($1)
		ORDER BY t.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	tickets, err := collectTickets(rows)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]domain.Ticket, len(orderIDs))
	for _, t := range tickets {
		if t.OrderID != nil {
			byOrder[*t.OrderID] = append(byOrder[*t.OrderID], t)
		}
	}
	return byOrder, nil
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.FlightID, &t.FlightNumber, &t.SeatNumber, &t.Price, &t.Status, &t.OrderID); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

var _ OrderRepository = (*PGOrderRepository)(nil)
