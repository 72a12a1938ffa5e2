package converter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/you-humble/mockpay/internal/model"
)

type paymentCompletedRecord struct {
	EventUUID     string    `json:"event_uuid"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Verified3DS   bool      `json:"verified_3ds"`
	Timestamp     time.Time `json:"timestamp"`
}

type kafkaConverter struct{}

func NewKafkaConverter() *kafkaConverter { return &kafkaConverter{} }

func (c *kafkaConverter) PaymentCompletedToPayload(m model.PaymentCompleted) ([]byte, error) {
	payload, err := json.Marshal(paymentCompletedRecord{
		EventUUID:     m.EventID.String(),
		OrderID:       m.OrderID,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		Currency:      m.Currency,
		PaymentMethod: string(m.PaymentMethod),
		Verified3DS:   m.Verified3DS,
		Timestamp:     m.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment_completed: %w", err)
	}

	return payload, nil
}
