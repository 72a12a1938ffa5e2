// Package checkout coordinates the payment simulator and the 3-D
// Secure verifier into one checkout session:
//
//	review → processing → (3ds)? → success | error | cancelled
//
// Instead of completion callbacks the controller exposes an awaited
// Outcome: exactly one of success or cancellation is delivered per
// session through Done/Wait.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/you-humble/mockpay/internal/model"
	"github.com/you-humble/mockpay/internal/service/threeds"
	"github.com/you-humble/mockpay/platform/logger"
)

type State string

const (
	StateIdle       State = "idle"
	StateReview     State = "review"
	StateProcessing State = "processing"
	StateChallenge  State = "3ds"
	StateSuccess    State = "success"
	StateError      State = "error"
	StateCancelled  State = "cancelled"
)

type CancelReason string

const (
	ReasonUserCancelled CancelReason = "cancelled_by_user"
	ReasonMaxAttempts   CancelReason = "max_attempts_exceeded"
)

const DefaultMaxAttempts = 3

// transitions is the complete reachability table of the flow. Every
// move goes through it; success and cancelled have no way out.
var transitions = map[State][]State{
	StateIdle:       {StateReview},
	StateReview:     {StateProcessing, StateCancelled},
	StateProcessing: {StateSuccess, StateChallenge, StateError},
	StateChallenge:  {StateProcessing, StateCancelled},
	StateError:      {StateReview, StateCancelled},
	StateSuccess:    {},
	StateCancelled:  {},
}

type Gateway interface {
	CreateOrder(ctx context.Context, params model.CreateOrderParams) (*model.Order, error)
	ConfirmPayment(ctx context.Context, orderID string, method model.PaymentMethod) (*model.PaymentResult, error)
}

type Verifier interface {
	Verify(ctx context.Context, orderID, code string) (*model.ChallengeResult, error)
}

type Config struct {
	// SuccessDisplayDelay holds the confirmation on screen before the
	// outcome is handed back to the caller.
	SuccessDisplayDelay time.Duration
	// SettlementDelay is spent back in processing after a verified
	// challenge.
	SettlementDelay time.Duration
	// CancelDisplayDelay applies to user-origin cancellations only;
	// 3DS-origin cancellations resolve immediately.
	CancelDisplayDelay time.Duration

	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		SuccessDisplayDelay: 2500 * time.Millisecond,
		SettlementDelay:     1500 * time.Millisecond,
		CancelDisplayDelay:  1500 * time.Millisecond,
		MaxAttempts:         DefaultMaxAttempts,
	}
}

// Transaction is the success payload of a finished session.
type Transaction struct {
	ID            string
	OrderID       string
	Amount        string
	Currency      string
	PaymentMethod model.PaymentMethod
	Verified3DS   bool
	Timestamp     time.Time
	Message       string
}

// Cancellation is the cancel payload of a finished session. Reason
// distinguishes an explicit user cancel from an exhausted challenge.
type Cancellation struct {
	Reason  CancelReason
	Message string
}

// Outcome is the terminal result of one session. Exactly one of
// Success and Cancelled is set.
type Outcome struct {
	Success   *Transaction
	Cancelled *Cancellation
}

// Controller owns one checkout session. All simulator calls within a
// session are strictly sequential; a second session requires a new
// controller.
type Controller struct {
	gateway  Gateway
	verifier Verifier
	cfg      Config

	mu       sync.Mutex
	state    State
	starting bool
	order    *model.Order
	method   model.PaymentMethod
	failure  *model.PaymentResult
	attempt  model.ChallengeAttempt
	outcome  *Outcome
	done     chan struct{}

	newTimer func(time.Duration) *time.Timer
}

func NewController(gw Gateway, vf Verifier, cfg Config) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Controller{
		gateway:  gw,
		verifier: vf,
		cfg:      cfg,
		state:    StateIdle,
		done:     make(chan struct{}),
		newTimer: time.NewTimer,
	}
}

// Start creates the session order and enters review. Only one order is
// ever in flight per controller: a second Start is rejected, including
// while the first is still unresolved.
func (c *Controller) Start(ctx context.Context, params model.CreateOrderParams) (*model.Order, error) {
	const op = "checkout.controller.Start"

	c.mu.Lock()
	if c.starting || c.state != StateIdle {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, model.ErrSessionActive)
	}
	c.starting = true
	c.mu.Unlock()

	ord, err := c.gateway.CreateOrder(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if terr := c.transition(StateReview); terr != nil {
		return nil, fmt.Errorf("%s: %w", op, terr)
	}
	c.order = ord

	logger.Info(ctx, "checkout session started",
		logger.String("order_id", ord.ID),
		logger.String("amount", ord.Amount),
		logger.String("currency", ord.Currency),
	)

	return ord, nil
}

// Confirm runs one confirmation attempt and maps every branch of the
// result onto the next state. No branch is ever dropped.
func (c *Controller) Confirm(ctx context.Context, method model.PaymentMethod) error {
	const op = "checkout.controller.Confirm"

	c.mu.Lock()
	if err := c.transition(StateProcessing); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	orderID := c.order.ID
	c.method = method
	c.mu.Unlock()

	res, err := c.gateway.ConfirmPayment(ctx, orderID, method)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()

		if terr := c.transition(StateError); terr != nil {
			return fmt.Errorf("%s: %w", op, terr)
		}
		c.failure = &model.PaymentResult{
			Status:  model.StatusError,
			OrderID: orderID,
			Code:    model.CodeNetworkError,
			Message: err.Error(),
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch res.Status {
	case model.StatusSuccess:
		if err := c.settleSuccess(ctx, res, false); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil

	case model.StatusRequiresAction:
		if err := c.transition(StateChallenge); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.attempt = model.ChallengeAttempt{Max: c.cfg.MaxAttempts}
		return nil

	case model.StatusDeclined, model.StatusError:
		if err := c.transition(StateError); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.failure = res
		return nil

	default:
		return fmt.Errorf("%s: unknown payment status %q", op, res.Status)
	}
}

// SubmitCode runs one 3DS challenge attempt. User input is normalized
// here, on the caller side of the verifier boundary. After the last
// allowed failure the session cancels with ReasonMaxAttempts instead
// of reporting another plain failure.
func (c *Controller) SubmitCode(ctx context.Context, rawCode string) (*model.ChallengeResult, error) {
	const op = "checkout.controller.SubmitCode"

	c.mu.Lock()
	if c.state != StateChallenge {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %s: %w", op, st, model.ErrInvalidTransition)
	}
	orderID := c.order.ID
	c.mu.Unlock()

	code := threeds.NormalizeCode(rawCode)

	res, err := c.verifier.Verify(ctx, orderID, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()

	if !res.Verified {
		defer c.mu.Unlock()

		c.attempt.Count++
		logger.Info(ctx, "challenge attempt failed",
			logger.String("order_id", orderID),
			logger.Int("attempt", c.attempt.Count),
			logger.Int("max_attempts", c.attempt.Max),
		)

		if c.attempt.Exhausted() {
			if err := c.transition(StateCancelled); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			c.complete(ctx, &Outcome{Cancelled: &Cancellation{
				Reason:  ReasonMaxAttempts,
				Message: "Verification failed: maximum attempts exceeded",
			}}, 0)
		}

		return res, nil
	}

	// Verified: settle back through processing before the terminal
	// state.
	if err := c.transition(StateProcessing); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ord := *c.order
	method := c.method
	c.mu.Unlock()

	if err := c.wait(ctx, c.cfg.SettlementDelay); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if method == "" {
		method = model.MethodCard
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.settleSuccess(ctx, &model.PaymentResult{
		Status:        model.StatusSuccess,
		OrderID:       ord.ID,
		TransactionID: res.TransactionID,
		Amount:        ord.Amount,
		Currency:      ord.Currency,
		PaymentMethod: method,
		Message:       res.Message,
		Timestamp:     res.Timestamp,
	}, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Retry returns an errored session to review, clearing the prior
// failure. All retries are user-initiated; nothing retries on its own.
func (c *Controller) Retry(ctx context.Context) error {
	const op = "checkout.controller.Retry"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateError {
		return fmt.Errorf("%s: %s: %w", op, c.state, model.ErrInvalidTransition)
	}
	if err := c.transition(StateReview); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.failure = nil

	logger.Info(ctx, "checkout retry", logger.String("order_id", c.order.ID))

	return nil
}

// Cancel aborts the session. Allowed in review, error and during the
// challenge; a no-op once the session is terminal.
func (c *Controller) Cancel(ctx context.Context) error {
	const op = "checkout.controller.Cancel"

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSuccess, StateCancelled:
		return nil

	case StateReview, StateError:
		if err := c.transition(StateCancelled); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.complete(ctx, &Outcome{Cancelled: &Cancellation{
			Reason:  ReasonUserCancelled,
			Message: "Payment cancelled by user",
		}}, c.cfg.CancelDisplayDelay)
		return nil

	case StateChallenge:
		if err := c.transition(StateCancelled); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		// 3DS-origin cancellations resolve immediately: the caller
		// dismisses the challenge surface itself.
		c.complete(ctx, &Outcome{Cancelled: &Cancellation{
			Reason:  ReasonUserCancelled,
			Message: "Verification cancelled by user",
		}}, 0)
		return nil

	default:
		return fmt.Errorf("%s: %s: %w", op, c.state, model.ErrInvalidTransition)
	}
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Order returns the session order, nil before Start.
func (c *Controller) Order() *model.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// LastFailure returns the declined/error payload held for display
// while in the error state.
func (c *Controller) LastFailure() *model.PaymentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Attempts returns the number of failed challenge submissions.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt.Count
}

// Done is closed once the session outcome has been delivered.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Outcome returns the terminal result, nil while the session is live.
func (c *Controller) Outcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return c.outcome
	default:
		return nil
	}
}

// Wait blocks until the outcome is delivered or ctx is done.
func (c *Controller) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome, nil
}

// transition moves the flow to the next state, failing on any move the
// table does not allow. Callers hold c.mu.
func (c *Controller) transition(to State) error {
	if !lo.Contains(transitions[c.state], to) {
		return fmt.Errorf("%s -> %s: %w", c.state, to, model.ErrInvalidTransition)
	}
	c.state = to
	return nil
}

// settleSuccess enters the terminal success state. Callers hold c.mu.
func (c *Controller) settleSuccess(ctx context.Context, res *model.PaymentResult, verified bool) error {
	if err := c.transition(StateSuccess); err != nil {
		return err
	}

	tx := &Transaction{
		ID:            res.TransactionID,
		OrderID:       res.OrderID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		PaymentMethod: res.PaymentMethod,
		Verified3DS:   verified,
		Timestamp:     res.Timestamp,
		Message:       res.Message,
	}

	logger.Info(ctx, "checkout settled",
		logger.String("order_id", tx.OrderID),
		logger.String("transaction_id", tx.ID),
		logger.Bool("verified_3ds", verified),
	)

	c.complete(ctx, &Outcome{Success: tx}, c.cfg.SuccessDisplayDelay)

	return nil
}

// complete records the outcome once and schedules delivery after the
// display delay. A cancelled ctx delivers early rather than never:
// late resolutions are ignored by design. Callers hold c.mu.
func (c *Controller) complete(ctx context.Context, out *Outcome, delay time.Duration) {
	if c.outcome != nil {
		return
	}
	c.outcome = out

	go func() {
		if delay > 0 {
			timer := c.newTimer(delay)
			defer timer.Stop()

			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		}
		close(c.done)
	}()
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := c.newTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
