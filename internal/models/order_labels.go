package models

import "strings"

// Подписи статусов нужны только на границе API, машина состояний с ними не работает.
var statusLabels = map[string]map[OrderStatus]string{
	"en": {
		StatusQuotation:      "Quotation",
		StatusRequested:      "Requested",
		StatusAccepted:       "Accepted",
		StatusInvoiced:       "Invoiced",
		StatusShipped:        "Shipped",
		StatusDelivered:      "Delivered",
		StatusPaymentPending: "Payment pending",
		StatusPaid:           "Paid",
		StatusCompleted:      "Completed",
		StatusRejected:       "Rejected",
		StatusCanceled:       "Canceled",
	},
	"es": {
		StatusQuotation:      "Cotización",
		StatusRequested:      "Solicitado",
		StatusAccepted:       "Aceptado",
		StatusInvoiced:       "Facturado",
		StatusShipped:        "Enviado",
		StatusDelivered:      "Entregado",
		StatusPaymentPending: "Pago pendiente",
		StatusPaid:           "Pagado",
		StatusCompleted:      "Completado",
		StatusRejected:       "Rechazado",
		StatusCanceled:       "Cancelado",
	},
}

const defaultLocale = "en"

// StatusLabel возвращает подпись статуса для локали вида "es" или "es-MX".
// Для неизвестной локали используется английская, для неизвестного статуса: само значение.
func StatusLabel(status OrderStatus, locale string) string {
	lang := strings.ToLower(strings.SplitN(locale, "-", 2)[0])

	labels, ok := statusLabels[lang]
	if !ok {
		labels = statusLabels[defaultLocale]
	}

	if label, ok := labels[status]; ok {
		return label
	}

	return string(status)
}
