package envconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/lo"

	"github.com/you-humble/mockpay/internal/model"
)

type simulationEnv struct {
	CreateOrderDelay    time.Duration `env:"CREATE_ORDER_DELAY" envDefault:"800ms"`
	ConfirmPaymentDelay time.Duration `env:"CONFIRM_PAYMENT_DELAY" envDefault:"2s"`
	VerifyDelay         time.Duration `env:"VERIFY_3DS_DELAY" envDefault:"1500ms"`

	// FORCE_RESULT pins every confirmation to one outcome, for demos
	// and tests. Empty keeps the random draw.
	ForceResult string `env:"FORCE_RESULT"`
}

var forceableResults = []string{
	string(model.StatusSuccess),
	string(model.StatusDeclined),
	string(model.StatusRequiresAction),
	string(model.StatusError),
}

type simulation struct {
	raw simulationEnv
}

func NewSimulationConfig() (*simulation, error) {
	var raw simulationEnv
	if err := env.Parse(&raw); err != nil {
		return nil, err
	}

	if raw.ForceResult != "" && !lo.Contains(forceableResults, raw.ForceResult) {
		return nil, fmt.Errorf("FORCE_RESULT: unknown value %q", raw.ForceResult)
	}

	return &simulation{raw: raw}, nil
}

func (cfg *simulation) CreateOrderDelay() time.Duration    { return cfg.raw.CreateOrderDelay }
func (cfg *simulation) ConfirmPaymentDelay() time.Duration { return cfg.raw.ConfirmPaymentDelay }
func (cfg *simulation) VerifyDelay() time.Duration         { return cfg.raw.VerifyDelay }

func (cfg *simulation) ForceResult() model.PaymentStatus {
	return model.PaymentStatus(cfg.raw.ForceResult)
}
