package bootstrap

import (
	"context"
	"fmt"

	"bifrost/internal/config"
	"bifrost/internal/logger"
	"bifrost/internal/queue"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer queue.Producer

	consumers []queue.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitQueue() {
	b.Producer = queue.NewKafkaProducer(b.Config.Queue, b.Logger)
}

// NewConsumer creates a Kafka consumer and tracks it for shutdown. Each
// inbound topic gets its own consumer.
func (b *Base) NewConsumer() queue.Consumer {
	consumer := queue.NewKafkaConsumer(b.Config.Queue, b.Logger)
	b.consumers = append(b.consumers, consumer)
	return consumer
}

func (b *Base) ShutdownQueue() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	for _, consumer := range b.consumers {
		if err := consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownQueue()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
