package models

import "time"

type TransactionKind string

const (
	KindPending   TransactionKind = "pending"
	KindAvailable TransactionKind = "available"
	KindRedeemed  TransactionKind = "redeemed"
	KindExpired   TransactionKind = "expired"
)

type TransactionSource string

const (
	SourceOrder              TransactionSource = "order"
	SourceFirstPurchaseBonus TransactionSource = "first_purchase_bonus"
	SourceVolumeBonus        TransactionSource = "volume_bonus"
	SourceManualBonus        TransactionSource = "manual_bonus"
	SourceRefund             TransactionSource = "refund"
	SourceRedemption         TransactionSource = "redemption"
)

// PointsTransaction представляет собой запись журнала баллов.
// Начисления хранятся с положительным Points, списания по обменам: с отрицательным.
// Consumed показывает, сколько баллов начисления уже ушло на обмены.
type PointsTransaction struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customerId"`
	OrderID        *string           `json:"orderId,omitempty"`
	RedemptionID   *string           `json:"redemptionId,omitempty"`
	Points         int64             `json:"points"`
	Consumed       int64             `json:"consumed"`
	Kind           TransactionKind   `json:"kind"`
	Source         TransactionSource `json:"source"`
	TierAtEarning  Tier              `json:"tierAtEarning"`
	EarnedDate     time.Time         `json:"earnedDate"`
	ReleasedDate   *time.Time        `json:"releasedDate,omitempty"`
	ExpirationDate *time.Time        `json:"expirationDate,omitempty"`
}

func (t PointsTransaction) IsCredit() bool {
	return t.Points > 0
}

// Remaining возвращает непотраченный остаток начисления.
func (t PointsTransaction) Remaining() int64 {
	if !t.IsCredit() {
		return 0
	}
	return t.Points - t.Consumed
}

// ExpiredAt сообщает, истёк ли срок действия начисления к моменту now.
func (t PointsTransaction) ExpiredAt(now time.Time) bool {
	return t.ExpirationDate != nil && t.ExpirationDate.Before(now)
}

// Spendable сообщает, можно ли тратить остаток начисления в момент now.
func (t PointsTransaction) Spendable(now time.Time) bool {
	return t.Kind == KindAvailable && t.Remaining() > 0 && !t.ExpiredAt(now)
}

type MonthlyExpiration struct {
	Month   string `json:"month"`
	Expires int64  `json:"expires"`
}

// PointsSummary вычисляется из журнала и не хранится.
// AsOf фиксирует момент расчёта: закэшированная сводка устаревает сразу после получения
// и не используется для авторизации списаний.
type PointsSummary struct {
	Available          int64               `json:"available"`
	Pending            int64               `json:"pending"`
	ExpiringSoon       int64               `json:"expiringSoon"`
	ExpiringByMonth    []MonthlyExpiration `json:"expiringByMonth"`
	EarnedLast12Months int64               `json:"earnedLast12Months"`
	Tier               TierProgress        `json:"tier"`
	AsOf               time.Time           `json:"asOf"`
}

type AvailablePoints struct {
	Points int64 `json:"points"`
}

type PointsEarned struct {
	Earned int64 `json:"earned"`
}

type PointsExpiring struct {
	Expirations []MonthlyExpiration `json:"expirations"`
}

type BonusKind string

const (
	BonusFirstPurchase BonusKind = "first_purchase"
	BonusVolume        BonusKind = "volume"
	BonusManual        BonusKind = "manual"
)

// BonusRule описывает бонус к начислению. Points = 0 означает значение из настроек программы.
type BonusRule struct {
	Kind    BonusKind `json:"kind"`
	Points  int64     `json:"points,omitempty"`
	OrderID *string   `json:"orderId,omitempty"`
}

type BonusResult struct {
	Granted     bool               `json:"granted"`
	Transaction *PointsTransaction `json:"transaction,omitempty"`
}
