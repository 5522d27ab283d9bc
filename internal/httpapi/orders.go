package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cestlavie/bakery/internal/engine"
	"github.com/cestlavie/bakery/pkg/types"
)

// createOrder accepts an order submission. Per the upstream contract every
// client fault on this endpoint, stock and slot conflicts included, comes
// back as 400 with a structured message.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		if errors.Is(err, types.ErrValidation) ||
			errors.Is(err, types.ErrNotFound) ||
			errors.Is(err, types.ErrConflict) {
			resp := errorResponse{Error: err.Error()}
			var slotErr *types.SlotError
			if errors.As(err, &slotErr) {
				resp.SuggestedDate = &slotErr.Suggested
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrderByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetAllOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrdersByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetOrdersByUser(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrdersByDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be yyyy-mm-dd"})
		return
	}
	orders, err := h.orders.GetOrdersByDay(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var order types.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), &order); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) acceptOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.orders.Accept)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.orders.Deliver)
}

type transitionFunc func(ctx context.Context, id string) (bool, error)

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id := chi.URLParam(r, "id")
	changed, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"order":   order,
	})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
