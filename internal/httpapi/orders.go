package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/ticket"
)

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.OrderFilter{
		Type:    domain.OrderType(strings.TrimSpace(query.Get("type"))),
		TableID: strings.ToUpper(strings.TrimSpace(query.Get("table"))),
	}
	for _, raw := range strings.Split(query.Get("status"), ",") {
		if status := strings.TrimSpace(raw); status != "" {
			filter.Statuses = append(filter.Statuses, domain.OrderStatus(status))
		}
	}

	orders, err := a.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := a.service.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleDiscardOrder(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DiscardOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.AddItem(r.Context(), chi.URLParam(r, "id"), req))
}

func (a *API) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), req))
}

func (a *API) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	a.respondOrder(w, http.StatusOK)(a.service.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), 0))
}

func (a *API) handleAddDiscount(w http.ResponseWriter, r *http.Request) {
	var req domain.AddDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.AddDiscount(r.Context(), chi.URLParam(r, "id"), req))
}

func (a *API) handleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	a.respondOrder(w, http.StatusOK)(a.service.RemoveDiscount(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "discountID")))
}

func (a *API) handleAssignCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.AssignCustomer(r.Context(), chi.URLParam(r, "id"), req))
}

func (a *API) handleRemoveCustomer(w http.ResponseWriter, r *http.Request) {
	a.respondOrder(w, http.StatusOK)(a.service.RemoveCustomer(r.Context(), chi.URLParam(r, "id")))
}

func (a *API) handleSendToKitchen(w http.ResponseWriter, r *http.Request) {
	dispatch, err := a.service.SendToKitchen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dispatch)
}

func (a *API) handlePresentBill(w http.ResponseWriter, r *http.Request) {
	a.respondOrder(w, http.StatusOK)(a.service.PresentBill(r.Context(), chi.URLParam(r, "id")))
}

func (a *API) handlePay(w http.ResponseWriter, r *http.Request) {
	var req domain.PayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.Pay(r.Context(), chi.URLParam(r, "id"), req.PaymentMethod))
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.CancelOrder(r.Context(), chi.URLParam(r, "id"), req.Reason))
}

func (a *API) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req domain.SplitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.SplitOrder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleKitchenStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.KitchenStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondOrder(w, http.StatusOK)(a.service.SetKitchenStatus(r.Context(), chi.URLParam(r, "id"), req.Status))
}

func (a *API) handleStationOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.service.StationOrders(r.Context(), domain.Station(chi.URLParam(r, "station")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// handleReceipt renders the customer bill. Query: type=detailed|summary,
// show_customer=true|false, copies=n.
func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := ticket.BillOptions{
		Type:         ticket.BillType(strings.TrimSpace(query.Get("type"))),
		ShowCustomer: query.Get("show_customer") == "true",
		Copies:       1,
	}
	if raw := strings.TrimSpace(query.Get("copies")); raw != "" {
		copies, err := strconv.Atoi(raw)
		if err != nil || copies < 1 || copies > 5 {
			writeError(w, http.StatusBadRequest, errors.New("copies must be between 1 and 5"))
			return
		}
		opts.Copies = copies
	}

	doc, err := a.service.RenderBill(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleTicket(w http.ResponseWriter, r *http.Request) {
	doc, err := a.service.RenderTicket(r.Context(), chi.URLParam(r, "id"), domain.Station(chi.URLParam(r, "station")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := a.service.ListTables(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (a *API) handleTakeaways(w http.ResponseWriter, r *http.Request) {
	board, err := a.service.TakeawayBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) handleResetTakeawayCounter(w http.ResponseWriter, r *http.Request) {
	counters, err := a.service.ResetTakeawayCounter(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counters": counters})
}

// respondOrder writes the single-order result of an engine operation.
func (a *API) respondOrder(w http.ResponseWriter, status int) func(domain.Order, error) {
	return func(order domain.Order, err error) {
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, status, map[string]any{"order": order})
	}
}
