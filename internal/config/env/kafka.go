package envconfig

import (
	"github.com/IBM/sarama"
	"github.com/caarlos0/env/v11"
)

// KAFKA_BROKERS is optional: without brokers the service runs with
// event publishing disabled.
type kafkaEnv struct {
	Brokers                   []string `env:"KAFKA_BROKERS"`
	PaymentCompletedTopicName string   `env:"PAYMENT_COMPLETED_TOPIC_NAME" envDefault:"payment.completed"`
}

type kafka struct {
	raw kafkaEnv
}

func NewKafkaConfig() (*kafka, error) {
	var raw kafkaEnv
	if err := env.Parse(&raw); err != nil {
		return nil, err
	}
	return &kafka{raw: raw}, nil
}

func (cfg *kafka) Enabled() bool                 { return len(cfg.raw.Brokers) > 0 }
func (cfg *kafka) Brokers() []string             { return cfg.raw.Brokers }
func (cfg *kafka) PaymentCompletedTopic() string { return cfg.raw.PaymentCompletedTopicName }

func (cfg *kafka) ProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V4_0_0_0
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	return config
}
