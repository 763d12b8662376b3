package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQL-запросы для работы с заказами
const (
	orderColumns = `
		id,
		customer_id,
		status,
		total,
		subtotal,
		item_quantity,
		points_mode,
		manual_points,
		points_awarded,
		multiplier,
		created_at,
		status_changed_at,
		delivered_at,
		paid_at
	`
	InsertOrderQuery = `
		INSERT INTO
			orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	SelectOrderQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			id = $1
	`
	SelectOrderForUpdateQuery = SelectOrderQuery + ` FOR UPDATE`
	SelectCustomerOrdersQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			customer_id = $1
		ORDER BY
			created_at
	`
	UpdateOrderQuery = `
		UPDATE
			orders
		SET
			status = $2,
			status_changed_at = $3,
			delivered_at = $4,
			paid_at = $5
		WHERE
			id = $1
	`
	SelectUnsettledOrdersQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			status NOT IN ('completed', 'rejected', 'canceled')
	`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order  models.Order
		status OrderStatusDB
		mode   EnumDB[models.PointsMode]
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&status,
		&order.Total,
		&order.Subtotal,
		&order.ItemQuantity,
		&mode,
		&order.ManualPoints,
		&order.PointsAwarded,
		&order.Multiplier,
		&order.CreatedAt,
		&order.StatusChangedAt,
		&order.DeliveredAt,
		&order.PaidAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = status.Val
	order.PointsMode = mode.Val

	return &order, nil
}

func (l *pgLedger) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	query := SelectOrderQuery
	if l.forUpdate {
		query = SelectOrderForUpdateQuery
	}

	order, err := scanOrder(l.q.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска заказа: %w", err)
	}

	return order, nil
}

func (l *pgLedger) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := l.q.Exec(ctx, InsertOrderQuery,
		order.ID,
		order.CustomerID,
		string(order.Status),
		order.Total,
		order.Subtotal,
		order.ItemQuantity,
		string(order.PointsMode),
		order.ManualPoints,
		order.PointsAwarded,
		order.Multiplier,
		order.CreatedAt,
		order.StatusChangedAt,
		order.DeliveredAt,
		order.PaidAt,
	)
	if err != nil {
		var e *pgconn.PgError
		// Нарушение уникальности означает, что заказ уже зарегистрирован
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	return nil
}

func (l *pgLedger) UpdateOrder(ctx context.Context, order models.Order) error {
	tag, err := l.q.Exec(ctx, UpdateOrderQuery,
		order.ID,
		string(order.Status),
		order.StatusChangedAt,
		order.DeliveredAt,
		order.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса заказа: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("заказ %s: %w", order.ID, ErrNotFound)
	}

	return nil
}

func (l *pgLedger) findOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := l.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска заказов: %w", err)
	}
	defer rows.Close()

	var result []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка обработки строки с заказом: %w", err)
		}
		result = append(result, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	return result, nil
}

// FindOrder ищет заказ без блокировки строки.
func (d *Database) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return d.queries().FindOrder(ctx, orderID)
}

// FindOrders возвращает заказы клиента по дате создания.
func (d *Database) FindOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	return d.queries().findOrders(ctx, SelectCustomerOrdersQuery, customerID)
}

// FindUnsettledOrders возвращает заказы, которые ещё не пришли в терминальный статус.
func (d *Database) FindUnsettledOrders(ctx context.Context) ([]models.Order, error) {
	return d.queries().findOrders(ctx, SelectUnsettledOrdersQuery)
}
