package router

import (
	"net/http"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/middlewares"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/utils"
	"github.com/go-chi/chi/v5"
)

func CreateRedemption(w http.ResponseWriter, r *http.Request) {
	request := middlewares.GetParsedJSONData[models.RedeemRequest](w, r)

	if request.ItemRef == nil || request.CostPoints == nil {
		http.Error(w, "Request doesn't contain itemRef or costPoints", http.StatusBadRequest)
		return
	}

	redemptionService := middlewares.GetServiceFromContext[models.RedemptionService](w, r, middlewares.RedemptionServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	result, err := (*redemptionService).Redeem(r.Context(), principal.ID, request)
	if err != nil {
		writeServiceError(w, r, "redeeming points", err)
		return
	}

	middlewares.EncodeJSONResponse(w, result)
}

func CancelRedemption(w http.ResponseWriter, r *http.Request) {
	redemptionService := middlewares.GetServiceFromContext[models.RedemptionService](w, r, middlewares.RedemptionServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	redemption, err := (*redemptionService).CancelRedemption(r.Context(), principal.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "canceling redemption", err)
		return
	}

	middlewares.EncodeJSONResponse(w, redemption)
}

func GetRedemptions(w http.ResponseWriter, r *http.Request) {
	var status *models.RedemptionStatus
	if value := r.URL.Query().Get("status"); value != "" {
		s := models.RedemptionStatus(value)
		if !s.IsValid() {
			http.Error(w, "Unknown redemption status", http.StatusBadRequest)
			return
		}
		status = &s
	}

	redemptionService := middlewares.GetServiceFromContext[models.RedemptionService](w, r, middlewares.RedemptionServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	redemptions, err := (*redemptionService).ListRedemptions(r.Context(), principal.ID, status)
	if err != nil {
		writeServiceError(w, r, "getting redemptions", err)
		return
	}

	if len(redemptions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result := make([]models.RedemptionListItem, len(redemptions))
	for i, redemption := range redemptions {
		result[i] = models.RedemptionListItem{
			ID:          redemption.ID,
			PointsSpent: redemption.PointsSpent,
			Status:      redemption.Status,
			ItemRef:     redemption.ItemRef,
			CreatedAt:   utils.RFC3339Date{Time: redemption.CreatedAt},
		}
	}

	middlewares.EncodeJSONResponse(w, result)
}
