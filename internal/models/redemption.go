package models

import (
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
)

type RedemptionStatus string

const (
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionCanceled  RedemptionStatus = "canceled"
)

func (s RedemptionStatus) IsValid() bool {
	return s == RedemptionCompleted || s == RedemptionCanceled
}

type ItemKind string

const (
	ItemProduct ItemKind = "product"
	ItemEvent   ItemKind = "event"
)

// Allocation представляет собой часть обмена, списанную с конкретного начисления.
type Allocation struct {
	TransactionID string `json:"transactionId"`
	Points        int64  `json:"points"`
}

type Redemption struct {
	ID          string           `json:"id"`
	CustomerID  string           `json:"customerId"`
	ItemRef     string           `json:"itemRef"`
	ItemKind    ItemKind         `json:"itemKind"`
	Attendees   int              `json:"attendees,omitempty"`
	PointsSpent int64            `json:"pointsSpent"`
	Status      RedemptionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	CanceledAt  *time.Time       `json:"canceledAt,omitempty"`
	Allocations []Allocation     `json:"allocations"`
}

type RedeemRequest struct {
	ItemRef    *string  `json:"itemRef"`
	ItemKind   ItemKind `json:"itemKind,omitempty"`
	Attendees  int      `json:"attendees,omitempty"`
	CostPoints *int64   `json:"costPoints"`
}

type RedeemResult struct {
	Success          bool        `json:"success"`
	RemainingBalance int64       `json:"remainingBalance"`
	Redemption       *Redemption `json:"redemption,omitempty"`
}

// RedemptionListItem представляет собой строку истории обменов для клиента.
type RedemptionListItem struct {
	ID          string            `json:"id"`
	PointsSpent int64             `json:"pointsSpent"`
	Status      RedemptionStatus  `json:"status"`
	ItemRef     string            `json:"itemRef"`
	CreatedAt   utils.RFC3339Date `json:"createdAt"`
}
