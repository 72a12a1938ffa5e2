package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	PaymentMethod string
	PaymentStatus string
	OrderStatus   string
)

const (
	MethodCard       PaymentMethod = "card"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodWallet     PaymentMethod = "wallet"
)

const (
	StatusSuccess        PaymentStatus = "success"
	StatusDeclined       PaymentStatus = "declined"
	StatusRequiresAction PaymentStatus = "requires_action"
	StatusError          PaymentStatus = "error"
)

// Orders only ever track the created state; later stages of a payment
// are modeled as separate result values, not order mutations.
const OrderStatusCreated OrderStatus = "created"

// ActionThreeDSecure is the only additional action the simulated
// processor ever requests.
const ActionThreeDSecure = "3d_secure"

const (
	CodeCardDeclined = "card_declined"
	CodeNetworkError = "network_error"
	CodeInvalidCode  = "invalid_code"
)

// DeclineReasons is the fixed set of human-readable causes attached to
// declined payments. ConfirmPayment picks one uniformly.
var DeclineReasons = []string{
	"Insufficient funds in the account",
	"Card blocked by the issuing bank",
	"Transaction limit exceeded",
	"Card has expired",
	"Invalid card data",
	"Transaction flagged as suspected fraud",
}

// Order is a simulated payment intent. Amount and currency are echoed
// from the caller verbatim: the mock processor accepts whatever it is
// given and performs no validation.
type Order struct {
	ID          string
	Amount      string
	Currency    string
	Description string
	Status      OrderStatus
	CreatedAt   time.Time
}

type CreateOrderParams struct {
	Amount      string
	Currency    string
	Description string
}

// PaymentResult is the outcome of one confirmation attempt,
// discriminated by Status. Success carries the transaction fields,
// declined carries Code/Details, requires_action carries Action and
// error carries Code.
type PaymentResult struct {
	Status        PaymentStatus
	OrderID       string
	TransactionID string
	Amount        string
	Currency      string
	PaymentMethod PaymentMethod
	Action        string
	Code          string
	Details       string
	Message       string
	Timestamp     time.Time
}

// ChallengeResult is the outcome of one 3-D Secure code submission.
type ChallengeResult struct {
	Verified      bool
	OrderID       string
	TransactionID string
	Code          string
	Message       string
	Timestamp     time.Time
}

// ChallengeAttempt tracks code submissions for one challenge session.
// The verifier itself is stateless; the counter is owned by the caller.
type ChallengeAttempt struct {
	Count int
	Max   int
}

func (a ChallengeAttempt) Exhausted() bool { return a.Count >= a.Max }

// PaymentCompleted is emitted once per successfully settled payment.
type PaymentCompleted struct {
	EventID       uuid.UUID
	OrderID       string
	TransactionID string
	Amount        string
	Currency      string
	PaymentMethod PaymentMethod
	Verified3DS   bool
	Timestamp     time.Time
}

// NewOrderID mints an order id from the creation time plus a random
// suffix. Ids are unique per process lifetime and never reused.
func NewOrderID(now time.Time) string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// NewTransactionID mints a transaction id. Transactions settled
// through the 3DS challenge carry a distinct prefix so the two id
// spaces stay disjoint.
func NewTransactionID(verified3DS bool) string {
	if verified3DS {
		return "TXN-3DS-" + uuid.NewString()
	}
	return "TXN-" + uuid.NewString()
}
