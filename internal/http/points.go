package router

import (
	"net/http"
	"strconv"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/logger"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/middlewares"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"go.uber.org/zap"
)

const (
	defaultEarnedMonths   = 12
	defaultExpiringMonths = 6
)

// Чтение баллов не должно блокировать интерфейс: при сбое хранилища отдаём нулевые значения.

func GetAvailablePoints(w http.ResponseWriter, r *http.Request) {
	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	points, err := (*ledgerService).AvailablePoints(r.Context(), principal.ID)
	if err != nil {
		logDegradedRead("available points", principal.ID, err)
		points = 0
	}

	middlewares.EncodeJSONResponse(w, models.AvailablePoints{Points: points})
}

func GetPointsEarned(w http.ResponseWriter, r *http.Request) {
	months, ok := monthsParam(w, r, defaultEarnedMonths)
	if !ok {
		return
	}

	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	earned, err := (*ledgerService).PointsEarned(r.Context(), principal.ID, months)
	if err != nil {
		logDegradedRead("points earned", principal.ID, err)
		earned = 0
	}

	middlewares.EncodeJSONResponse(w, models.PointsEarned{Earned: earned})
}

func GetPointsExpiring(w http.ResponseWriter, r *http.Request) {
	months, ok := monthsParam(w, r, defaultExpiringMonths)
	if !ok {
		return
	}

	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	expirations, err := (*ledgerService).PointsExpiring(r.Context(), principal.ID, months)
	if err != nil {
		logDegradedRead("points expiring", principal.ID, err)
		expirations = nil
	}
	if expirations == nil {
		expirations = []models.MonthlyExpiration{}
	}

	middlewares.EncodeJSONResponse(w, models.PointsExpiring{Expirations: expirations})
}

func GetBalance(w http.ResponseWriter, r *http.Request) {
	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	summary, err := (*ledgerService).Balance(r.Context(), principal.ID)
	if err != nil {
		logDegradedRead("balance", principal.ID, err)
		summary = models.PointsSummary{ExpiringByMonth: []models.MonthlyExpiration{}}
	}

	middlewares.EncodeJSONResponse(w, summary)
}

func GetTier(w http.ResponseWriter, r *http.Request) {
	ledgerService := middlewares.GetServiceFromContext[models.LedgerService](w, r, middlewares.LedgerServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	tier, err := (*ledgerService).Tier(r.Context(), principal.ID)
	if err != nil {
		writeServiceError(w, r, "getting tier", err)
		return
	}

	middlewares.EncodeJSONResponse(w, tier)
}

func monthsParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	value := r.URL.Query().Get("months")
	if value == "" {
		return fallback, true
	}

	months, err := strconv.Atoi(value)
	if err != nil || months <= 0 {
		http.Error(w, "Parameter months must be a positive integer", http.StatusBadRequest)
		return 0, false
	}

	return months, true
}

func logDegradedRead(what, customerID string, err error) {
	logger.Log.Warn("points read degraded to zero",
		zap.String("read", what),
		zap.String("customer_id", customerID),
		zap.Error(err),
	)
}
