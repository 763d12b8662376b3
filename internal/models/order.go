package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusQuotation      OrderStatus = "quotation"
	StatusRequested      OrderStatus = "requested"
	StatusAccepted       OrderStatus = "accepted"
	StatusInvoiced       OrderStatus = "invoiced"
	StatusShipped        OrderStatus = "shipped"
	StatusDelivered      OrderStatus = "delivered"
	StatusPaymentPending OrderStatus = "payment_pending"
	StatusPaid           OrderStatus = "paid"
	StatusCompleted      OrderStatus = "completed"
	StatusRejected       OrderStatus = "rejected"
	StatusCanceled       OrderStatus = "canceled"
)

// MainLine задаёт порядок статусов заказа без терминальных ответвлений.
var MainLine = []OrderStatus{
	StatusQuotation,
	StatusRequested,
	StatusAccepted,
	StatusInvoiced,
	StatusShipped,
	StatusDelivered,
	StatusPaymentPending,
	StatusPaid,
	StatusCompleted,
}

// Rank возвращает позицию статуса на основной линии или -1 для rejected/canceled и неизвестных значений.
func (s OrderStatus) Rank() int {
	for i, status := range MainLine {
		if status == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsValid() bool {
	return s.Rank() >= 0 || s == StatusRejected || s == StatusCanceled
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCanceled
}

type PointsMode string

const (
	PointsModeAutomatic PointsMode = "automatic"
	PointsModeManual    PointsMode = "manual"
)

type Order struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	Status          OrderStatus     `json:"status"`
	StatusLabel     string          `json:"statusLabel,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ItemQuantity    int             `json:"itemQuantity"`
	PointsMode      PointsMode      `json:"pointsMode"`
	ManualPoints    int64           `json:"manualPoints,omitempty"`
	PointsAwarded   int64           `json:"pointsAwarded"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	CreatedAt       time.Time       `json:"createdAt"`
	StatusChangedAt time.Time       `json:"statusChangedAt"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}

// NewOrder представляет собой тело запроса на регистрацию заказа от сервиса заказов.
type NewOrder struct {
	ID           *string          `json:"id"`
	CustomerID   *string          `json:"customerId"`
	Status       *OrderStatus     `json:"status,omitempty"`
	Total        *decimal.Decimal `json:"total"`
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
	ItemQuantity int              `json:"itemQuantity"`
	PointsMode   PointsMode       `json:"pointsMode,omitempty"`
	ManualPoints int64            `json:"manualPoints,omitempty"`
	CreatedAt    *time.Time       `json:"createdAt,omitempty"`
}

type StatusChange struct {
	Status *OrderStatus `json:"status"`
}
