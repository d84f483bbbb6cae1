package kafka_config

import "time"

const (
	// Empty disables the event stream.
	DefaultKafkaBrokers       = ""
	DefaultKafkaBookingsTopic = "bookings.confirmed"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 10 * time.Second
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
)
