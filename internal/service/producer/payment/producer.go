package pmtproducer

import (
	"context"
	"fmt"

	"github.com/you-humble/mockpay/internal/model"
	"github.com/you-humble/mockpay/platform/kafka"
)

type Converter interface {
	PaymentCompletedToPayload(m model.PaymentCompleted) ([]byte, error)
}

type service struct {
	producer kafka.Producer
	conv     Converter
}

func NewPaymentProducer(producer kafka.Producer, conv Converter) *service {
	return &service{producer: producer, conv: conv}
}

func (s *service) SendPaymentCompleted(ctx context.Context, event model.PaymentCompleted) error {
	payload, err := s.conv.PaymentCompletedToPayload(event)
	if err != nil {
		return fmt.Errorf("converter payment_completed_to_payload error: %w", err)
	}

	if err := s.producer.Send(ctx, []byte(event.OrderID), payload); err != nil {
		return fmt.Errorf("produce to payment.completed topic error: %w", err)
	}

	return nil
}

// NopSender is wired instead of the kafka-backed sender when no
// brokers are configured.
type NopSender struct{}

func (NopSender) SendPaymentCompleted(context.Context, model.PaymentCompleted) error {
	return nil
}
