package router

import (
	"net/http"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/middlewares"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/go-chi/chi/v5"
)

// ApplyBonus начисляет бонус клиенту от имени сервиса. Повторный разовый бонус возвращает granted=false.
func ApplyBonus(w http.ResponseWriter, r *http.Request) {
	rule := middlewares.GetParsedJSONData[models.BonusRule](w, r)

	if rule.Kind == "" {
		http.Error(w, "Request doesn't contain bonus kind", http.StatusBadRequest)
		return
	}

	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)

	result, err := (*ledgerService).ApplyBonus(r.Context(), chi.URLParam(r, "id"), rule)
	if err != nil {
		writeServiceError(w, r, "applying bonus", err)
		return
	}

	middlewares.EncodeJSONResponse(w, result)
}
