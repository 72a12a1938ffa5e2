package config

import (
	"time"

	"github.com/IBM/sarama"

	"github.com/you-humble/mockpay/internal/model"
)

type Server interface {
	Host() string
	Port() int
	Address() string
	ReadTimeout() time.Duration
	ShutdownTimeout() time.Duration
}

type Logger interface {
	Level() string
	AsJSON() bool
}

type Kafka interface {
	Enabled() bool
	Brokers() []string
	PaymentCompletedTopic() string
	ProducerConfig() *sarama.Config
}

type Simulation interface {
	CreateOrderDelay() time.Duration
	ConfirmPaymentDelay() time.Duration
	VerifyDelay() time.Duration
	ForceResult() model.PaymentStatus
}
