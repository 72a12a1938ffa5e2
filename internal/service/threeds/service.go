// Package threeds models the out-of-band 3-D Secure challenge of the
// simulated processor. Verification is stateless per call: attempt
// tracking belongs to the caller (see checkout.Controller).
package threeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/you-humble/mockpay/internal/model"
	"github.com/you-humble/mockpay/platform/logger"
)

// validCodes is the testing backdoor of the simulated challenge. The
// exact strings are load-bearing for existing fixtures.
var validCodes = []string{"123456", "000000", "111111"}

// codeLength is the expected challenge code length.
const codeLength = 6

type OrderRepository interface {
	OrderByID(ctx context.Context, id string) (*model.Order, error)
}

type PaymentCompletedSender interface {
	SendPaymentCompleted(ctx context.Context, event model.PaymentCompleted) error
}

type Config struct {
	VerifyDelay time.Duration
}

func DefaultConfig() Config {
	return Config{VerifyDelay: 1500 * time.Millisecond}
}

type service struct {
	repo   OrderRepository
	sender PaymentCompletedSender
	cfg    Config

	now      func() time.Time
	newTimer func(time.Duration) *time.Timer
}

func NewVerifierService(
	repo OrderRepository,
	sender PaymentCompletedSender,
	cfg Config,
) *service {
	return &service{
		repo:     repo,
		sender:   sender,
		cfg:      cfg,
		now:      time.Now,
		newTimer: time.NewTimer,
	}
}

// Verify resolves one challenge-code submission. The code is compared
// exactly as given; normalization of user input is a caller concern
// (see NormalizeCode). A wrong code is a payload, not an error.
func (s *service) Verify(ctx context.Context, orderID, code string) (*model.ChallengeResult, error) {
	const op = "threeds.service.Verify"
	log := logger.With(logger.String("order_id", orderID))

	ord, err := s.repo.OrderByID(ctx, orderID)
	if err != nil {
		log.Error(ctx, "repository order by id", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.wait(ctx, s.cfg.VerifyDelay); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !lo.Contains(validCodes, code) {
		log.Info(ctx, "challenge rejected")
		return &model.ChallengeResult{
			OrderID:   orderID,
			Code:      model.CodeInvalidCode,
			Message:   "Incorrect verification code",
			Timestamp: s.now(),
		}, nil
	}

	res := &model.ChallengeResult{
		Verified:      true,
		OrderID:       orderID,
		TransactionID: model.NewTransactionID(true),
		Message:       "Identity verified",
		Timestamp:     s.now(),
	}

	log.Info(ctx, "challenge verified",
		logger.String("transaction_id", res.TransactionID),
	)

	s.publishCompleted(ctx, ord, res)

	return res, nil
}

// publishCompleted emits the settlement event for a 3DS-verified
// payment. Only card payments ever reach the challenge, so the method
// is fixed. Delivery is best effort.
func (s *service) publishCompleted(ctx context.Context, ord *model.Order, res *model.ChallengeResult) {
	if s.sender == nil {
		return
	}

	event := model.PaymentCompleted{
		EventID:       uuid.New(),
		OrderID:       ord.ID,
		TransactionID: res.TransactionID,
		Amount:        ord.Amount,
		Currency:      ord.Currency,
		PaymentMethod: model.MethodCard,
		Verified3DS:   true,
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

// NormalizeCode strips non-digit characters and truncates the result
// to the challenge code length. It mirrors what the original checkout
// surface did to user input before submitting; the verifier itself
// never normalizes.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == codeLength {
			break
		}
	}
	return b.String()
}
