package router

import (
	"errors"
	"net/http"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/middlewares"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
	"github.com/go-chi/chi/v5"
)

func CreateOrder(w http.ResponseWriter, r *http.Request) {
	newOrder := middlewares.GetParsedJSONData[models.NewOrder](w, r)

	if newOrder.ID == nil || newOrder.CustomerID == nil || newOrder.Total == nil {
		http.Error(w, "Request doesn't contain order id, customer id or total", http.StatusBadRequest)
		return
	}

	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)

	order, err := (*orderService).CreateOrder(r.Context(), newOrder)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateOrderByOriginalCustomer) {
			w.WriteHeader(http.StatusOK)
			return
		}

		writeServiceError(w, r, "creating order", err)
		return
	}

	middlewares.EncodeJSONResponseWithStatus(w, http.StatusCreated, order)
}

func TransitionOrderStatus(w http.ResponseWriter, r *http.Request) {
	change := middlewares.GetParsedJSONData[models.StatusChange](w, r)

	if change.Status == nil {
		http.Error(w, "Request doesn't contain status", http.StatusBadRequest)
		return
	}

	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)

	order, err := (*orderService).TransitionStatus(r.Context(), chi.URLParam(r, "id"), *change.Status)
	if err != nil {
		writeServiceError(w, r, "changing order status", err)
		return
	}

	middlewares.EncodeJSONResponse(w, order)
}

// GetOrder отдаёт заказ с подписью статуса на языке из параметра locale.
// Клиент видит только свои заказы.
func GetOrder(w http.ResponseWriter, r *http.Request) {
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	order, err := (*orderService).GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "getting order", err)
		return
	}

	if principal.Role != models.RoleService && order.CustomerID != principal.ID {
		http.Error(w, services.ErrOrderNotFound.Error(), http.StatusNotFound)
		return
	}

	order.StatusLabel = models.StatusLabel(order.Status, r.URL.Query().Get("locale"))

	middlewares.EncodeJSONResponse(w, order)
}

func GetOrders(w http.ResponseWriter, r *http.Request) {
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)
	principal := middlewares.GetPrincipalFromContext(w, r)
	if principal == nil {
		return
	}

	orders, err := (*orderService).GetOrders(r.Context(), principal.ID)
	if err != nil {
		writeServiceError(w, r, "getting orders", err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	locale := r.URL.Query().Get("locale")
	for i := range orders {
		orders[i].StatusLabel = models.StatusLabel(orders[i].Status, locale)
	}

	middlewares.EncodeJSONResponse(w, orders)
}
