package pmtproducer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/mockpay/internal/converter"
	"github.com/you-humble/mockpay/internal/model"
)

type fakeProducer struct {
	sendFn func(ctx context.Context, key, value []byte) error

	calls int
	lastK []byte
	lastV []byte
}

func (p *fakeProducer) Send(ctx context.Context, key, value []byte) error {
	p.calls++
	p.lastK = append([]byte(nil), key...)
	p.lastV = append([]byte(nil), value...)
	if p.sendFn == nil {
		return nil
	}
	return p.sendFn(ctx, key, value)
}

func TestService_SendPaymentCompleted(t *testing.T) {
	t.Parallel()

	event := model.PaymentCompleted{
		EventID:       uuid.New(),
		OrderID:       "ORD-1756348800000-a1b2c3d4",
		TransactionID: "TXN-3DS-" + uuid.NewString(),
		Amount:        "69.99",
		Currency:      "MXN",
		PaymentMethod: model.MethodCard,
		Verified3DS:   true,
		Timestamp:     time.Now().UTC(),
	}

	prod := &fakeProducer{}
	svc := NewPaymentProducer(prod, converter.NewKafkaConverter())

	require.NoError(t, svc.SendPaymentCompleted(context.Background(), event))
	require.Equal(t, 1, prod.calls)
	require.Equal(t, []byte(event.OrderID), prod.lastK)

	var got map[string]any
	require.NoError(t, json.Unmarshal(prod.lastV, &got))
	require.Equal(t, event.EventID.String(), got["event_uuid"])
	require.Equal(t, event.OrderID, got["order_id"])
	require.Equal(t, event.TransactionID, got["transaction_id"])
	require.Equal(t, "69.99", got["amount"])
	require.Equal(t, "MXN", got["currency"])
	require.Equal(t, "card", got["payment_method"])
	require.Equal(t, true, got["verified_3ds"])
}

func TestService_SendPaymentCompleted_ProducerError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("broker down")
	prod := &fakeProducer{
		sendFn: func(context.Context, []byte, []byte) error { return wantErr },
	}
	svc := NewPaymentProducer(prod, converter.NewKafkaConverter())

	err := svc.SendPaymentCompleted(context.Background(), model.PaymentCompleted{OrderID: "ORD-1"})
	require.ErrorIs(t, err, wantErr)
}

func TestNopSender(t *testing.T) {
	t.Parallel()

	require.NoError(t, NopSender{}.SendPaymentCompleted(context.Background(), model.PaymentCompleted{}))
}
