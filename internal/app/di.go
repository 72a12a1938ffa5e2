package app

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"

	"github.com/you-humble/mockpay/internal/config"
	"github.com/you-humble/mockpay/internal/converter"
	repository "github.com/you-humble/mockpay/internal/repository/order"
	"github.com/you-humble/mockpay/internal/service/gateway"
	pmtproducer "github.com/you-humble/mockpay/internal/service/producer/payment"
	"github.com/you-humble/mockpay/internal/service/threeds"
	httpv1 "github.com/you-humble/mockpay/internal/transport/http/gateway/v1"
	"github.com/you-humble/mockpay/platform/closer"
	"github.com/you-humble/mockpay/platform/kafka"
	"github.com/you-humble/mockpay/platform/kafka/producer"
	"github.com/you-humble/mockpay/platform/logger"
)

type GatewayHandler interface {
	Routes(r chi.Router)
}

type di struct {
	orderRepository gateway.OrderRepository

	syncProducer             sarama.SyncProducer
	paymentCompletedProducer kafka.Producer
	conv                     pmtproducer.Converter
	paymentSender            gateway.PaymentCompletedSender

	gatewayService  httpv1.GatewayService
	verifierService httpv1.VerifierService

	gatewayHandler GatewayHandler
	router         *chi.Mux
}

func NewDI() *di { return &di{} }

func (d *di) OrderRepository(ctx context.Context) gateway.OrderRepository {
	if d.orderRepository == nil {
		d.orderRepository = repository.NewOrderRepository()
	}

	return d.orderRepository
}

func (d *di) SyncProducer(ctx context.Context) sarama.SyncProducer {
	if d.syncProducer == nil {
		cfg := config.C()

		p, err := sarama.NewSyncProducer(
			cfg.Kafka.Brokers(),
			cfg.Kafka.ProducerConfig(),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create sync producer: %s\n", err.Error()))
		}
		closer.AddNamed("Kafka sync producer", func(ctx context.Context) error {
			return p.Close()
		})

		d.syncProducer = p
	}

	return d.syncProducer
}

func (d *di) PaymentCompletedProducer(ctx context.Context) kafka.Producer {
	if d.paymentCompletedProducer == nil {
		d.paymentCompletedProducer = producer.NewProducer(
			d.SyncProducer(ctx),
			config.C().Kafka.PaymentCompletedTopic(),
			logger.L(),
		)
	}

	return d.paymentCompletedProducer
}

func (d *di) KafkaConverter(ctx context.Context) pmtproducer.Converter {
	if d.conv == nil {
		d.conv = converter.NewKafkaConverter()
	}

	return d.conv
}

// PaymentSender falls back to a no-op when no brokers are configured,
// keeping the simulator runnable without any infrastructure.
func (d *di) PaymentSender(ctx context.Context) gateway.PaymentCompletedSender {
	if d.paymentSender == nil {
		if !config.C().Kafka.Enabled() {
			d.paymentSender = pmtproducer.NopSender{}
			return d.paymentSender
		}

		d.paymentSender = pmtproducer.NewPaymentProducer(
			d.PaymentCompletedProducer(ctx),
			d.KafkaConverter(ctx),
		)
	}

	return d.paymentSender
}

func (d *di) GatewayService(ctx context.Context) httpv1.GatewayService {
	if d.gatewayService == nil {
		sim := config.C().Simulation

		d.gatewayService = gateway.NewGatewayService(
			d.OrderRepository(ctx),
			d.PaymentSender(ctx),
			gateway.Config{
				CreateOrderDelay:    sim.CreateOrderDelay(),
				ConfirmPaymentDelay: sim.ConfirmPaymentDelay(),
				ForceResult:         sim.ForceResult(),
			},
		)
	}

	return d.gatewayService
}

func (d *di) VerifierService(ctx context.Context) httpv1.VerifierService {
	if d.verifierService == nil {
		d.verifierService = threeds.NewVerifierService(
			d.OrderRepository(ctx),
			d.PaymentSender(ctx),
			threeds.Config{VerifyDelay: config.C().Simulation.VerifyDelay()},
		)
	}

	return d.verifierService
}

func (d *di) GatewayHandler(ctx context.Context) GatewayHandler {
	if d.gatewayHandler == nil {
		d.gatewayHandler = httpv1.NewGatewayHandler(
			d.GatewayService(ctx),
			d.OrderRepository(ctx),
			d.VerifierService(ctx),
		)
	}

	return d.gatewayHandler
}

func (d *di) Router(ctx context.Context) *chi.Mux {
	if d.router == nil {
		d.router = chi.NewRouter()
	}

	return d.router
}
