// Package http exposes the payment simulator over JSON. The surface
// mirrors the processor API the checkout flow talks to: order
// creation, confirmation and the 3DS challenge.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/you-humble/mockpay/internal/model"
	"github.com/you-humble/mockpay/internal/service/threeds"
	"github.com/you-humble/mockpay/platform/logger"
)

type GatewayService interface {
	CreateOrder(ctx context.Context, params model.CreateOrderParams) (*model.Order, error)
	ConfirmPayment(ctx context.Context, orderID string, method model.PaymentMethod) (*model.PaymentResult, error)
}

type OrderProvider interface {
	OrderByID(ctx context.Context, id string) (*model.Order, error)
}

type VerifierService interface {
	Verify(ctx context.Context, orderID, code string) (*model.ChallengeResult, error)
}

type handler struct {
	gateway  GatewayService
	orders   OrderProvider
	verifier VerifierService
}

func NewGatewayHandler(
	gateway GatewayService,
	orders OrderProvider,
	verifier VerifierService,
) *handler {
	return &handler{
		gateway:  gateway,
		orders:   orders,
		verifier: verifier,
	}
}

// Routes mounts the v1 surface onto r.
func (h *handler) Routes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{orderID}", h.OrderByID)
	r.Post("/orders/{orderID}/confirm", h.ConfirmPayment)
	r.Post("/orders/{orderID}/3ds/verify", h.VerifyChallenge)
}

type createOrderRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type confirmPaymentRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

type paymentResultResponse struct {
	Status        string `json:"status"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Action        string `json:"action,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Details       string `json:"details,omitempty"`
	Timestamp     string `json:"timestamp"`
}

type verifyChallengeRequest struct {
	Code string `json:"code"`
}

type challengeResultResponse struct {
	Verified      bool   `json:"verified"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Timestamp     string `json:"timestamp"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ord, err := h.gateway.CreateOrder(r.Context(), model.CreateOrderParams{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, orderToResponse(ord))
}

func (h *handler) OrderByID(w http.ResponseWriter, r *http.Request) {
	ord, err := h.orders.OrderByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, orderToResponse(ord))
}

func (h *handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	res, err := h.gateway.ConfirmPayment(
		r.Context(),
		chi.URLParam(r, "orderID"),
		model.PaymentMethod(req.PaymentMethod),
	)
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, paymentResultResponse{
		Status:        string(res.Status),
		OrderID:       res.OrderID,
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		PaymentMethod: string(res.PaymentMethod),
		Action:        res.Action,
		Code:          res.Code,
		Message:       res.Message,
		Details:       res.Details,
		Timestamp:     res.Timestamp.UTC().Format(timeLayout),
	})
}

func (h *handler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req verifyChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	// Normalization happens at the edge; the verifier compares exact
	// codes.
	code := threeds.NormalizeCode(req.Code)

	res, err := h.verifier.Verify(r.Context(), chi.URLParam(r, "orderID"), code)
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, challengeResultResponse{
		Verified:      res.Verified,
		OrderID:       res.OrderID,
		TransactionID: res.TransactionID,
		Code:          res.Code,
		Message:       res.Message,
		Timestamp:     res.Timestamp.UTC().Format(timeLayout),
	})
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func orderToResponse(ord *model.Order) orderResponse {
	return orderResponse{
		OrderID:     ord.ID,
		Amount:      ord.Amount,
		Currency:    ord.Currency,
		Description: ord.Description,
		Status:      string(ord.Status),
		CreatedAt:   ord.CreatedAt.UTC().Format(timeLayout),
	}
}

func mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error()) // 400
	case errors.Is(err, model.ErrOrderNotFound):
		writeError(w, r, http.StatusNotFound, err.Error()) // 404
	case errors.Is(err, model.ErrOrderConflict):
		writeError(w, r, http.StatusConflict, err.Error()) // 409
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, err.Error()) // 503
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error()) // 500
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, r, code, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(r.Context(), "write response", logger.ErrorF(err))
	}
}
