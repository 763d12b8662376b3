package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
	"go.uber.org/zap"
)

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Нарушение целостности журнала дополнительно уходит в лог ошибок для операторов.
func writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInsufficientPoints):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrRedemptionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrDuplicateOrder):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrInvalidRedemption),
		errors.Is(err, services.ErrInvalidBonus):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInvalidPeriod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrLedgerInconsistency):
		logger.Log.Error("ledger inconsistency",
			zap.String("action", action),
			zap.String("uri", r.RequestURI),
			zap.Error(err),
		)
		http.Error(w, "Internal ledger error", http.StatusInternalServerError)
	default:
		http.Error(w, fmt.Sprintf("Error occurred during %s: %s", action, err.Error()), http.StatusInternalServerError)
	}
}
