package services

import (
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
)

// Transition представляет собой результат применения запрошенного статуса к заказу.
type Transition struct {
	From    models.OrderStatus
	To      models.OrderStatus
	Changed bool
	// Release: заказ впервые оплачен, ожидающие баллы нужно освободить.
	Release bool
	// Discard: заказ отклонён или отменён до оплаты, ожидающие баллы нужно удалить.
	Discard   bool
	Completed bool
}

// ApplyTransition проверяет переход заказа в статус requested и возвращает обновлённый заказ.
// Заказ двигается по основной линии строго на один шаг. Статус completed не запрашивается,
// а выводится, когда у заказа есть и доставка, и оплата.
func ApplyTransition(order models.Order, requested models.OrderStatus, now time.Time) (models.Order, Transition, error) {
	tr := Transition{From: order.Status, To: order.Status}

	if !requested.IsValid() {
		return order, tr, fmt.Errorf("%w: неизвестный статус %q", ErrInvalidTransition, requested)
	}

	// Повторная доставка того же события
	if requested == order.Status {
		return order, tr, nil
	}
	if order.Status == models.StatusCompleted && requested == models.StatusPaid {
		return order, tr, nil
	}

	if order.Status.IsTerminal() || requested == models.StatusCompleted {
		return order, tr, invalidTransition(order.Status, requested)
	}

	switch requested {
	case models.StatusRejected:
		if order.Status != models.StatusQuotation && order.Status != models.StatusRequested {
			return order, tr, invalidTransition(order.Status, requested)
		}
		tr.Discard = true
	case models.StatusCanceled:
		if order.Status.Rank() >= models.StatusPaid.Rank() {
			return order, tr, invalidTransition(order.Status, requested)
		}
		tr.Discard = true
	default:
		if requested.Rank() != order.Status.Rank()+1 {
			return order, tr, invalidTransition(order.Status, requested)
		}
	}

	order.Status = requested
	order.StatusChangedAt = now

	switch requested {
	case models.StatusDelivered:
		order.DeliveredAt = &now
	case models.StatusPaid:
		order.PaidAt = &now
		tr.Release = true
	}

	if order.DeliveredAt != nil && order.PaidAt != nil {
		order.Status = models.StatusCompleted
		tr.Completed = true
	}

	tr.To = order.Status
	tr.Changed = true

	return order, tr, nil
}

// StepsTowards возвращает шаги основной линии от текущего статуса до target включительно.
// Для терминальных ответвлений и целей позади текущего статуса возвращается один target.
func StepsTowards(current, target models.OrderStatus) []models.OrderStatus {
	from, to := current.Rank(), target.Rank()
	if from < 0 || to <= from+1 {
		return []models.OrderStatus{target}
	}
	return append([]models.OrderStatus(nil), models.MainLine[from+1:to+1]...)
}

func invalidTransition(from, to models.OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
