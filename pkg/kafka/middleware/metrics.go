package kafka_middleware

import (
	"context"

	"appointments/pkg/kafka"
	"appointments/pkg/metrics"
)

// MetricsProducerMiddleware counts publish outcomes on the kafka
// notification channel.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		if err != nil {
			m.NotificationFailed(metrics.ChannelKafka)
		} else {
			m.NotificationSent(metrics.ChannelKafka)
		}
		return err
	}
}
