package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/mockpay/internal/model"
	repository "github.com/you-humble/mockpay/internal/repository/order"
	"github.com/you-humble/mockpay/internal/service/gateway"
	"github.com/you-humble/mockpay/internal/service/threeds"
	"github.com/you-humble/mockpay/platform/logger"
)

func newServer(t *testing.T, force model.PaymentStatus) *httptest.Server {
	t.Helper()
	logger.SetNopLogger()

	repo := repository.NewOrderRepository()
	gw := gateway.NewGatewayService(repo, nil, gateway.Config{ForceResult: force})
	vf := threeds.NewVerifierService(repo, nil, threeds.Config{})

	r := chi.NewRouter()
	r.Route("/api/v1", NewGatewayHandler(gw, repo, vf).Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func createOrder(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders", map[string]string{
		"amount":      "69.99",
		"currency":    "MXN",
		"description": "premium plan",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := payload["order_id"].(string)
	require.True(t, strings.HasPrefix(id, "ORD-"))
	return id
}

func TestHandler_CreateAndGetOrder(t *testing.T) {
	t.Parallel()

	srv := newServer(t, model.StatusSuccess)
	id := createOrder(t, srv)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, id, payload["order_id"])
	require.Equal(t, "69.99", payload["amount"])
	require.Equal(t, "MXN", payload["currency"])
	require.Equal(t, string(model.OrderStatusCreated), payload["status"])

	_, err := time.Parse(timeLayout, payload["created_at"].(string))
	require.NoError(t, err)
}

func TestHandler_GetOrder_NotFound(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/v1/orders/ORD-missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, float64(http.StatusNotFound), payload["code"])
}

func TestHandler_CreateOrder_BadBody(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		srv.URL+"/api/v1/orders",
		strings.NewReader("{not json"),
	)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ConfirmPayment(t *testing.T) {
	t.Parallel()

	srv := newServer(t, model.StatusSuccess)
	id := createOrder(t, srv)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders/"+id+"/confirm",
		map[string]string{"payment_method": "card"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, string(model.StatusSuccess), payload["status"])
	require.Equal(t, id, payload["order_id"])

	txn, _ := payload["transaction_id"].(string)
	require.True(t, strings.HasPrefix(txn, "TXN-"))
}

func TestHandler_ConfirmPayment_EmptyBodyAllowed(t *testing.T) {
	t.Parallel()

	srv := newServer(t, model.StatusSuccess)
	id := createOrder(t, srv)

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		srv.URL+"/api/v1/orders/"+id+"/confirm",
		nil,
	)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "card", payload["payment_method"], "missing method defaults to card")
}

func TestHandler_VerifyChallenge(t *testing.T) {
	t.Parallel()

	srv := newServer(t, model.StatusRequiresAction)
	id := createOrder(t, srv)

	// Raw user input is normalized before hitting the verifier.
	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders/"+id+"/3ds/verify",
		map[string]string{"code": "123-456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, payload["verified"])

	txn, _ := payload["transaction_id"].(string)
	require.True(t, strings.HasPrefix(txn, "TXN-3DS-"))
}

func TestHandler_VerifyChallenge_WrongCode(t *testing.T) {
	t.Parallel()

	srv := newServer(t, model.StatusRequiresAction)
	id := createOrder(t, srv)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders/"+id+"/3ds/verify",
		map[string]string{"code": "999999"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "a wrong code is a payload, not a transport error")
	require.Equal(t, false, payload["verified"])
	require.Equal(t, model.CodeInvalidCode, payload["code"])
}

func TestHandler_VerifyChallenge_UnknownOrder(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/orders/ORD-missing/3ds/verify",
		map[string]string{"code": "123456"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
