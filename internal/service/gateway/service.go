// Package gateway emulates a remote payment processor without network
// I/O. Latency is simulated with cancellable timers and confirmation
// outcomes are drawn from a fixed probability partition.
package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/you-humble/mockpay/internal/model"
	"github.com/you-humble/mockpay/platform/logger"
)

// Outcome partition of a single uniform draw in [0,1):
// 70% success, 15% declined, 10% requires_action, 5% network error.
const (
	successThreshold        = 0.70
	declinedThreshold       = 0.85
	requiresActionThreshold = 0.95
)

type OrderRepository interface {
	Create(ctx context.Context, ord *model.Order) error
	OrderByID(ctx context.Context, id string) (*model.Order, error)
}

type PaymentCompletedSender interface {
	SendPaymentCompleted(ctx context.Context, event model.PaymentCompleted) error
}

type Config struct {
	CreateOrderDelay    time.Duration
	ConfirmPaymentDelay time.Duration

	// ForceResult pins every confirmation outcome to one status.
	// Empty means draw at random.
	ForceResult model.PaymentStatus
}

func DefaultConfig() Config {
	return Config{
		CreateOrderDelay:    800 * time.Millisecond,
		ConfirmPaymentDelay: 2 * time.Second,
	}
}

type service struct {
	repo   OrderRepository
	sender PaymentCompletedSender
	cfg    Config

	randFloat func() float64
	now       func() time.Time
	newTimer  func(time.Duration) *time.Timer
}

func NewGatewayService(
	repo OrderRepository,
	sender PaymentCompletedSender,
	cfg Config,
) *service {
	return &service{
		repo:      repo,
		sender:    sender,
		cfg:       cfg,
		randFloat: rand.Float64,
		now:       time.Now,
		newTimer:  time.NewTimer,
	}
}

// CreateOrder registers a new payment intent. Inputs are echoed
// verbatim; the simulated processor does not validate amounts or
// currencies.
func (s *service) CreateOrder(
	ctx context.Context,
	params model.CreateOrderParams,
) (*model.Order, error) {
	const op = "gateway.service.CreateOrder"

	if err := s.wait(ctx, s.cfg.CreateOrderDelay); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	ord := &model.Order{
		ID:          model.NewOrderID(now),
		Amount:      params.Amount,
		Currency:    params.Currency,
		Description: params.Description,
		Status:      model.OrderStatusCreated,
		CreatedAt:   now,
	}

	if err := s.repo.Create(ctx, ord); err != nil {
		logger.Error(ctx, "repository create order", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info(ctx, "order created",
		logger.String("order_id", ord.ID),
		logger.String("amount", ord.Amount),
		logger.String("currency", ord.Currency),
	)

	return ord, nil
}

// ConfirmPayment resolves one confirmation attempt for an existing
// order. The result is a payload, never an error: declined payments
// and simulated network failures are states of the simulation. Errors
// are reserved for misuse (unknown order) and context cancellation.
func (s *service) ConfirmPayment(
	ctx context.Context,
	orderID string,
	method model.PaymentMethod,
) (*model.PaymentResult, error) {
	const op = "gateway.service.ConfirmPayment"
	log := logger.With(logger.String("order_id", orderID))

	ord, err := s.repo.OrderByID(ctx, orderID)
	if err != nil {
		log.Error(ctx, "repository order by id", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if method == "" {
		method = model.MethodCard
	}

	if err := s.wait(ctx, s.cfg.ConfirmPaymentDelay); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := s.outcome(ord, method)

	log.Info(ctx, "payment confirmed",
		logger.String("status", string(res.Status)),
		logger.String("transaction_id", res.TransactionID),
	)

	if res.Status == model.StatusSuccess {
		s.publishCompleted(ctx, res, false)
	}

	return res, nil
}

func (s *service) outcome(ord *model.Order, method model.PaymentMethod) *model.PaymentResult {
	status := s.cfg.ForceResult
	if status == "" {
		status = drawStatus(s.randFloat())
	}

	switch status {
	case model.StatusSuccess:
		return &model.PaymentResult{
			Status:        model.StatusSuccess,
			OrderID:       ord.ID,
			TransactionID: model.NewTransactionID(false),
			Amount:        ord.Amount,
			Currency:      ord.Currency,
			PaymentMethod: method,
			Message:       "Payment processed successfully",
			Timestamp:     s.now(),
		}
	case model.StatusDeclined:
		return &model.PaymentResult{
			Status:    model.StatusDeclined,
			OrderID:   ord.ID,
			Code:      model.CodeCardDeclined,
			Message:   "Payment was declined",
			Details:   s.declineReason(),
			Timestamp: s.now(),
		}
	case model.StatusRequiresAction:
		return &model.PaymentResult{
			Status:    model.StatusRequiresAction,
			OrderID:   ord.ID,
			Action:    model.ActionThreeDSecure,
			Message:   "Additional verification required",
			Timestamp: s.now(),
		}
	default:
		return &model.PaymentResult{
			Status:    model.StatusError,
			OrderID:   ord.ID,
			Code:      model.CodeNetworkError,
			Message:   "A network error occurred, try again",
			Timestamp: s.now(),
		}
	}
}

func drawStatus(r float64) model.PaymentStatus {
	switch {
	case r < successThreshold:
		return model.StatusSuccess
	case r < declinedThreshold:
		return model.StatusDeclined
	case r < requiresActionThreshold:
		return model.StatusRequiresAction
	default:
		return model.StatusError
	}
}

func (s *service) declineReason() string {
	i := int(s.randFloat() * float64(len(model.DeclineReasons)))
	if i >= len(model.DeclineReasons) {
		i = len(model.DeclineReasons) - 1
	}
	return model.DeclineReasons[i]
}

// publishCompleted emits a payment.completed event. Delivery is best
// effort: a broker outage must not fail the simulation.
func (s *service) publishCompleted(ctx context.Context, res *model.PaymentResult, verified bool) {
	if s.sender == nil {
		return
	}

	event := model.PaymentCompleted{
		EventID:       uuid.New(),
		OrderID:       res.OrderID,
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		PaymentMethod: res.PaymentMethod,
		Verified3DS:   verified,
		Timestamp:     res.Timestamp,
	}

	if err := s.sender.SendPaymentCompleted(ctx, event); err != nil {
		logger.Error(ctx, "send payment completed", logger.ErrorF(err))
	}
}

func (s *service) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := s.newTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
