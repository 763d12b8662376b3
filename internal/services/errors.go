package services

import "errors"

// Ошибки ядра программы лояльности
var (
	ErrInvalidTransition   = errors.New("недопустимый переход статуса заказа")
	ErrInsufficientPoints  = errors.New("недостаточно баллов")
	ErrDuplicateBonus      = errors.New("бонус уже начислен")
	ErrLedgerInconsistency = errors.New("нарушена целостность журнала баллов")

	ErrOrderNotFound                    = errors.New("заказ не найден")
	ErrDuplicateOrder                   = errors.New("заказ уже зарегистрирован другим клиентом")
	ErrDuplicateOrderByOriginalCustomer = errors.New("заказ уже зарегистрирован этим клиентом")
	ErrInvalidOrder                     = errors.New("некорректные данные заказа")

	ErrRedemptionNotFound = errors.New("обмен не найден")
	ErrInvalidRedemption  = errors.New("некорректный запрос на обмен")
	ErrInvalidBonus       = errors.New("некорректное правило бонуса")
	ErrInvalidPeriod      = errors.New("период должен быть положительным числом месяцев")
)
