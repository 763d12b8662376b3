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

// SQL-запросы для работы с обменами баллов
const (
	redemptionColumns = `
		id,
		customer_id,
		item_ref,
		item_kind,
		attendees,
		points_spent,
		status,
		created_at,
		canceled_at
	`
	InsertRedemptionQuery = `
		INSERT INTO
			redemptions (` + redemptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	InsertAllocationQuery = `
		INSERT INTO
			redemption_allocations (customer_id, redemption_id, transaction_id, points)
		VALUES ($1, $2, $3, $4)
	`
	SelectRedemptionQuery = `
		SELECT ` + redemptionColumns + `
		FROM
			redemptions
		WHERE
			customer_id = $1
			AND id = $2
	`
	SelectAllocationsQuery = `
		SELECT
			transaction_id,
			points
		FROM
			redemption_allocations
		WHERE
			customer_id = $1
			AND redemption_id = $2
		ORDER BY
			transaction_id
	`
	SelectRedemptionsQuery = `
		SELECT ` + redemptionColumns + `
		FROM
			redemptions
		WHERE
			customer_id = $1
			AND ($2::TEXT IS NULL OR status = $2)
		ORDER BY
			created_at DESC
	`
	UpdateRedemptionQuery = `
		UPDATE
			redemptions
		SET
			status = $3,
			canceled_at = $4
		WHERE
			customer_id = $1
			AND id = $2
	`
)

func scanRedemption(row rowScanner) (*models.Redemption, error) {
	var (
		r      models.Redemption
		kind   EnumDB[models.ItemKind]
		status EnumDB[models.RedemptionStatus]
	)

	err := row.Scan(
		&r.ID,
		&r.CustomerID,
		&r.ItemRef,
		&kind,
		&r.Attendees,
		&r.PointsSpent,
		&status,
		&r.CreatedAt,
		&r.CanceledAt,
	)
	if err != nil {
		return nil, err
	}

	r.ItemKind = kind.Val
	r.Status = status.Val

	return &r, nil
}

func (l *pgLedger) CreateRedemption(ctx context.Context, r models.Redemption) error {
	_, err := l.q.Exec(ctx, InsertRedemptionQuery,
		r.ID,
		r.CustomerID,
		r.ItemRef,
		string(r.ItemKind),
		r.Attendees,
		r.PointsSpent,
		string(r.Status),
		r.CreatedAt,
		r.CanceledAt,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("обмен %s: %w", r.ID, ErrDuplicateTransaction)
		}
		return fmt.Errorf("не удалось создать обмен: %w", err)
	}

	for _, a := range r.Allocations {
		if _, err := l.q.Exec(ctx, InsertAllocationQuery, r.CustomerID, r.ID, a.TransactionID, a.Points); err != nil {
			return fmt.Errorf("не удалось сохранить списание с начисления %s: %w", a.TransactionID, err)
		}
	}

	return nil
}

func (l *pgLedger) findAllocations(ctx context.Context, customerID, redemptionID string) ([]models.Allocation, error) {
	rows, err := l.q.Query(ctx, SelectAllocationsQuery, customerID, redemptionID)
	if err != nil {
		return nil, fmt.Errorf("не удалось выбрать списания обмена: %w", err)
	}
	defer rows.Close()

	var result []models.Allocation
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.TransactionID, &a.Points); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании списания: %w", err)
		}
		result = append(result, a)
	}

	return result, rows.Err()
}

func (l *pgLedger) FindRedemption(ctx context.Context, customerID, redemptionID string) (*models.Redemption, error) {
	query := SelectRedemptionQuery
	if l.forUpdate {
		query += ` FOR UPDATE`
	}

	r, err := scanRedemption(l.q.QueryRow(ctx, query, customerID, redemptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска обмена: %w", err)
	}

	r.Allocations, err = l.findAllocations(ctx, customerID, redemptionID)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (l *pgLedger) UpdateRedemption(ctx context.Context, r models.Redemption) error {
	tag, err := l.q.Exec(ctx, UpdateRedemptionQuery, r.CustomerID, r.ID, string(r.Status), r.CanceledAt)
	if err != nil {
		return fmt.Errorf("не удалось обновить обмен: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("обмен %s: %w", r.ID, ErrNotFound)
	}

	return nil
}

// FindRedemptions возвращает обмены клиента, новые первыми. status == nil означает все статусы.
func (d *Database) FindRedemptions(ctx context.Context, customerID string, status *models.RedemptionStatus) ([]models.Redemption, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}

	rows, err := d.db.Query(ctx, SelectRedemptionsQuery, customerID, filter)
	if err != nil {
		return nil, fmt.Errorf("не удалось выбрать обмены: %w", err)
	}
	defer rows.Close()

	var result []models.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании обмена: %w", err)
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после чтения обменов: %w", err)
	}

	return result, nil
}
