package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQL-запросы для работы с журналом баллов
const (
	transactionColumns = `
		id,
		customer_id,
		order_id,
		redemption_id,
		points,
		consumed,
		kind,
		source,
		tier_at_earning,
		earned_date,
		released_date,
		expiration_date
	`
	InsertTransactionQuery = `
		INSERT INTO
			points_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	SelectTransactionsQuery = `
		SELECT ` + transactionColumns + `
		FROM
			points_transactions
		WHERE
			customer_id = $1
		ORDER BY
			earned_date, id
	`
	SelectOrderTransactionQuery = `
		SELECT ` + transactionColumns + `
		FROM
			points_transactions
		WHERE
			customer_id = $1
			AND order_id = $2
			AND source = $3
	`
	UpdateTransactionQuery = `
		UPDATE
			points_transactions
		SET
			consumed = $3,
			kind = $4,
			released_date = $5,
			expiration_date = $6
		WHERE
			customer_id = $1
			AND id = $2
	`
	DeleteTransactionQuery = `
		DELETE FROM
			points_transactions
		WHERE
			customer_id = $1
			AND id = $2
	`
	SelectCustomersWithExpiredPointsQuery = `
		SELECT DISTINCT
			customer_id
		FROM
			points_transactions
		WHERE
			kind = 'available'
			AND expiration_date < $1
	`
)

func scanTransaction(row rowScanner) (*models.PointsTransaction, error) {
	var (
		t      models.PointsTransaction
		kind   EnumDB[models.TransactionKind]
		source EnumDB[models.TransactionSource]
		tier   EnumDB[models.Tier]
	)

	err := row.Scan(
		&t.ID,
		&t.CustomerID,
		&t.OrderID,
		&t.RedemptionID,
		&t.Points,
		&t.Consumed,
		&kind,
		&source,
		&tier,
		&t.EarnedDate,
		&t.ReleasedDate,
		&t.ExpirationDate,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = kind.Val
	t.Source = source.Val
	t.TierAtEarning = tier.Val

	return &t, nil
}

func (l *pgLedger) FindTransactions(ctx context.Context, customerID string) ([]models.PointsTransaction, error) {
	rows, err := l.q.Query(ctx, SelectTransactionsQuery, customerID)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить запрос журнала: %w", err)
	}
	defer rows.Close()

	var result []models.PointsTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании строки журнала: %w", err)
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после чтения строк журнала: %w", err)
	}

	return result, nil
}

func (l *pgLedger) FindOrderTransaction(ctx context.Context, customerID, orderID string, source models.TransactionSource) (*models.PointsTransaction, error) {
	t, err := scanTransaction(l.q.QueryRow(ctx, SelectOrderTransactionQuery, customerID, orderID, string(source)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска начисления по заказу: %w", err)
	}

	return t, nil
}

func (l *pgLedger) CreateTransaction(ctx context.Context, t models.PointsTransaction) error {
	_, err := l.q.Exec(ctx, InsertTransactionQuery,
		t.ID,
		t.CustomerID,
		t.OrderID,
		t.RedemptionID,
		t.Points,
		t.Consumed,
		string(t.Kind),
		string(t.Source),
		string(t.TierAtEarning),
		t.EarnedDate,
		t.ReleasedDate,
		t.ExpirationDate,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("не удалось создать запись журнала: %w", err)
	}

	return nil
}

func (l *pgLedger) UpdateTransaction(ctx context.Context, t models.PointsTransaction) error {
	tag, err := l.q.Exec(ctx, UpdateTransactionQuery,
		t.CustomerID,
		t.ID,
		t.Consumed,
		string(t.Kind),
		t.ReleasedDate,
		t.ExpirationDate,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить запись журнала: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("запись журнала %s: %w", t.ID, ErrNotFound)
	}

	return nil
}

func (l *pgLedger) DeleteTransaction(ctx context.Context, customerID, transactionID string) error {
	if _, err := l.q.Exec(ctx, DeleteTransactionQuery, customerID, transactionID); err != nil {
		return fmt.Errorf("не удалось удалить запись журнала: %w", err)
	}

	return nil
}

// FindTransactions читает журнал клиента без блокировки, для расчёта сводок.
func (d *Database) FindTransactions(ctx context.Context, customerID string) ([]models.PointsTransaction, error) {
	return d.queries().FindTransactions(ctx, customerID)
}

// FindCustomersWithExpiredPoints возвращает клиентов, у которых есть доступные начисления
// с истёкшим к моменту before сроком.
func (d *Database) FindCustomersWithExpiredPoints(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := d.db.Query(ctx, SelectCustomersWithExpiredPointsQuery, before)
	if err != nil {
		return nil, fmt.Errorf("не удалось выбрать клиентов для списания: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var customerID string
		if err := rows.Scan(&customerID); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании клиента: %w", err)
		}
		result = append(result, customerID)
	}

	return result, rows.Err()
}
