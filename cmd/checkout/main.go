// Demo driver for the payment flow: runs full checkout sessions
// against the in-process simulator and prints each outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/you-humble/mockpay/internal/model"
	repository "github.com/you-humble/mockpay/internal/repository/order"
	"github.com/you-humble/mockpay/internal/service/checkout"
	"github.com/you-humble/mockpay/internal/service/gateway"
	pmtproducer "github.com/you-humble/mockpay/internal/service/producer/payment"
	"github.com/you-humble/mockpay/internal/service/threeds"
	"github.com/you-humble/mockpay/platform/logger"
)

func main() {
	sessions := flag.Int("sessions", 5, "number of checkout sessions to run")
	fast := flag.Bool("fast", false, "run with zero simulated delays")
	force := flag.String("force", "", "pin every confirmation outcome (success, declined, requires_action, error)")
	flag.Parse()

	logger.SetNopLogger()

	ctx, quit := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer quit()

	repo := repository.NewOrderRepository()
	sender := pmtproducer.NopSender{}

	gwCfg := gateway.DefaultConfig()
	vfCfg := threeds.DefaultConfig()
	flowCfg := checkout.DefaultConfig()
	if *fast {
		gwCfg.CreateOrderDelay = 0
		gwCfg.ConfirmPaymentDelay = 0
		vfCfg.VerifyDelay = 0
		flowCfg.SuccessDisplayDelay = 0
		flowCfg.SettlementDelay = 0
		flowCfg.CancelDisplayDelay = 0
	}
	gwCfg.ForceResult = model.PaymentStatus(*force)

	gw := gateway.NewGatewayService(repo, sender, gwCfg)
	vf := threeds.NewVerifierService(repo, sender, vfCfg)

	for i := 0; i < *sessions; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := runSession(ctx, i+1, gw, vf, flowCfg); err != nil {
			fmt.Printf("session %d: %v\n", i+1, err)
		}
	}
}

func runSession(
	ctx context.Context,
	n int,
	gw checkout.Gateway,
	vf checkout.Verifier,
	cfg checkout.Config,
) error {
	ctrl := checkout.NewController(gw, vf, cfg)

	ord, err := ctrl.Start(ctx, model.CreateOrderParams{
		Amount:      strconv.FormatFloat(gofakeit.Price(1, 500), 'f', 2, 64),
		Currency:    gofakeit.CurrencyShort(),
		Description: gofakeit.ProductName(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("session %d: order %s — %s %s (%s)\n",
		n, ord.ID, ord.Amount, ord.Currency, ord.Description)

	if err := ctrl.Confirm(ctx, model.MethodCard); err != nil {
		return err
	}

	switch ctrl.State() {
	case checkout.StateChallenge:
		// Submit the raw form of a valid code; the controller
		// normalizes.
		fmt.Printf("session %d: 3DS challenge, submitting code\n", n)
		if _, err := ctrl.SubmitCode(ctx, "123-456"); err != nil {
			return err
		}

	case checkout.StateError:
		failure := ctrl.LastFailure()
		fmt.Printf("session %d: payment failed (%s): %s\n", n, failure.Code, failure.Message)
		if failure.Details != "" {
			fmt.Printf("session %d: %s\n", n, failure.Details)
		}
		if err := ctrl.Cancel(ctx); err != nil {
			return err
		}
	}

	out, err := ctrl.Wait(ctx)
	if err != nil {
		return err
	}

	switch {
	case out.Success != nil:
		fmt.Printf("session %d: ✅ paid, transaction %s (3ds=%v)\n",
			n, out.Success.ID, out.Success.Verified3DS)
	case out.Cancelled != nil:
		fmt.Printf("session %d: 🛑 cancelled (%s)\n", n, out.Cancelled.Reason)
	}

	return nil
}
