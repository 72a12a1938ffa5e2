package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/you-humble/mockpay/internal/model"
	repository "github.com/you-humble/mockpay/internal/repository/order"
	"github.com/you-humble/mockpay/internal/service/gateway"
	"github.com/you-humble/mockpay/internal/service/threeds"
	"github.com/you-humble/mockpay/platform/logger"
)

// newSUT wires a controller over the real simulator services with all
// delays zeroed and the confirmation outcome pinned.
func newSUT(t *testing.T, force model.PaymentStatus) *Controller {
	t.Helper()
	logger.SetNopLogger()

	repo := repository.NewOrderRepository()
	gw := gateway.NewGatewayService(repo, nil, gateway.Config{ForceResult: force})
	vf := threeds.NewVerifierService(repo, nil, threeds.Config{})

	return NewController(gw, vf, Config{MaxAttempts: DefaultMaxAttempts})
}

func start(t *testing.T, c *Controller) *model.Order {
	t.Helper()

	ord, err := c.Start(context.Background(), model.CreateOrderParams{
		Amount:      "69.99",
		Currency:    "MXN",
		Description: "premium plan",
	})
	require.NoError(t, err)
	require.Equal(t, StateReview, c.State())
	return ord
}

func TestController_SuccessfulPayment(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusSuccess)
	ctx := context.Background()
	ord := start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateSuccess, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.Nil(t, out.Cancelled)
	require.NotNil(t, out.Success)
	require.Equal(t, ord.ID, out.Success.OrderID)
	require.Equal(t, "69.99", out.Success.Amount)
	require.Equal(t, "MXN", out.Success.Currency)
	require.True(t, strings.HasPrefix(out.Success.ID, "TXN-"))
	require.False(t, strings.HasPrefix(out.Success.ID, "TXN-3DS-"))
	require.False(t, out.Success.Verified3DS)
}

func TestController_ChallengeVerified(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusRequiresAction)
	ctx := context.Background()
	ord := start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateChallenge, sut.State())

	// Raw user input; the controller normalizes before verifying.
	res, err := sut.SubmitCode(ctx, "123-456")
	require.NoError(t, err)
	require.True(t, res.Verified)
	require.Equal(t, StateSuccess, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Success)
	require.Equal(t, ord.ID, out.Success.OrderID)
	require.True(t, out.Success.Verified3DS)
	require.True(t, strings.HasPrefix(out.Success.ID, "TXN-3DS-"))
	require.Equal(t, model.MethodCard, out.Success.PaymentMethod)
}

func TestController_ChallengeExhausted(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusRequiresAction)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))

	for i := 1; i <= DefaultMaxAttempts; i++ {
		res, err := sut.SubmitCode(ctx, "999999")
		require.NoError(t, err)
		require.False(t, res.Verified)
		require.Equal(t, model.CodeInvalidCode, res.Code)
		require.Equal(t, i, sut.Attempts())
	}

	require.Equal(t, StateCancelled, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.Nil(t, out.Success)
	require.NotNil(t, out.Cancelled)
	require.Equal(t, ReasonMaxAttempts, out.Cancelled.Reason)

	// A cancelled session accepts no further submissions.
	_, err = sut.SubmitCode(ctx, "123456")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestController_DeclinedThenRetry(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusDeclined)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateError, sut.State())

	failure := sut.LastFailure()
	require.NotNil(t, failure)
	require.Equal(t, model.StatusDeclined, failure.Status)
	require.Equal(t, model.CodeCardDeclined, failure.Code)
	require.Contains(t, model.DeclineReasons, failure.Details)

	require.NoError(t, sut.Retry(ctx))
	require.Equal(t, StateReview, sut.State())
	require.Nil(t, sut.LastFailure())

	// Same order, new confirmation attempt.
	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateError, sut.State())
}

func TestController_NetworkError(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusError)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateError, sut.State())

	failure := sut.LastFailure()
	require.NotNil(t, failure)
	require.Equal(t, model.CodeNetworkError, failure.Code)
}

func TestController_CancelFromReview(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusSuccess)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Cancel(ctx))
	require.Equal(t, StateCancelled, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Cancelled)
	require.Equal(t, ReasonUserCancelled, out.Cancelled.Reason)

	// Terminal states absorb repeated cancels.
	require.NoError(t, sut.Cancel(ctx))
	require.Equal(t, out, sut.Outcome())
}

func TestController_CancelFromError(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusDeclined)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateError, sut.State())

	require.NoError(t, sut.Cancel(ctx))
	require.Equal(t, StateCancelled, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, ReasonUserCancelled, out.Cancelled.Reason)
}

func TestController_CancelDuringChallenge(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusRequiresAction)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, model.MethodCard))
	require.Equal(t, StateChallenge, sut.State())

	require.NoError(t, sut.Cancel(ctx))
	require.Equal(t, StateCancelled, sut.State())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, ReasonUserCancelled, out.Cancelled.Reason)
}

func TestController_InvalidTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("confirm before start", func(t *testing.T) {
		t.Parallel()

		sut := newSUT(t, model.StatusSuccess)
		err := sut.Confirm(ctx, model.MethodCard)
		require.ErrorIs(t, err, model.ErrInvalidTransition)
		require.Equal(t, StateIdle, sut.State())
	})

	t.Run("retry from review", func(t *testing.T) {
		t.Parallel()

		sut := newSUT(t, model.StatusSuccess)
		start(t, sut)
		require.ErrorIs(t, sut.Retry(ctx), model.ErrInvalidTransition)
	})

	t.Run("submit code from review", func(t *testing.T) {
		t.Parallel()

		sut := newSUT(t, model.StatusRequiresAction)
		start(t, sut)
		_, err := sut.SubmitCode(ctx, "123456")
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	})

	t.Run("cancel before start", func(t *testing.T) {
		t.Parallel()

		sut := newSUT(t, model.StatusSuccess)
		require.ErrorIs(t, sut.Cancel(ctx), model.ErrInvalidTransition)
	})

	t.Run("start twice", func(t *testing.T) {
		t.Parallel()

		sut := newSUT(t, model.StatusSuccess)
		start(t, sut)
		_, err := sut.Start(ctx, model.CreateOrderParams{Amount: "1", Currency: "USD"})
		require.ErrorIs(t, err, model.ErrSessionActive)
	})
}

func TestController_OutcomeNilWhileLive(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusSuccess)
	start(t, sut)

	require.Nil(t, sut.Outcome())

	select {
	case <-sut.Done():
		t.Fatal("done closed before the session finished")
	default:
	}
}

func TestController_SuccessDisplayDelay(t *testing.T) {
	t.Parallel()
	logger.SetNopLogger()

	repo := repository.NewOrderRepository()
	gw := gateway.NewGatewayService(repo, nil, gateway.Config{ForceResult: model.StatusSuccess})
	sut := NewController(gw, nil, Config{
		SuccessDisplayDelay: 30 * time.Millisecond,
		MaxAttempts:         DefaultMaxAttempts,
	})
	ctx := context.Background()

	_, err := sut.Start(ctx, model.CreateOrderParams{Amount: "1", Currency: "USD"})
	require.NoError(t, err)
	require.NoError(t, sut.Confirm(ctx, model.MethodCard))

	// The terminal state is entered immediately; delivery waits out
	// the display delay.
	require.Equal(t, StateSuccess, sut.State())
	require.Nil(t, sut.Outcome())

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Success)
}

func TestController_DefaultsMethodToCardAfterChallenge(t *testing.T) {
	t.Parallel()

	sut := newSUT(t, model.StatusRequiresAction)
	ctx := context.Background()
	start(t, sut)

	require.NoError(t, sut.Confirm(ctx, ""))

	res, err := sut.SubmitCode(ctx, "000000")
	require.NoError(t, err)
	require.True(t, res.Verified)

	out, err := sut.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, model.MethodCard, out.Success.PaymentMethod)
}
