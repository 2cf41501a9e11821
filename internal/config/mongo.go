package config

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ClientOptions translates the mongo section into driver client options.
// Zero/empty values are replaced with the defaults from Default().
func (m *MongoConfig) ClientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(m.URI).
		SetMaxPoolSize(effectiveMaxPoolSize(m.MaxPoolSize)).
		SetMinPoolSize(m.MinPoolSize).
		SetMaxConnIdleTime(durationOr(m.MaxIdleTime, 30*time.Second)).
		SetServerSelectionTimeout(durationOr(m.ServerSelectionTimeout, 5*time.Second)).
		SetConnectTimeout(durationOr(m.ConnectTimeout, 10*time.Second)).
		SetSocketTimeout(durationOr(m.SocketTimeout, 30*time.Second)).
		SetRetryWrites(m.RetryWrites)

	if wc := writeConcern(m.WriteConcern); wc != nil {
		opts.SetWriteConcern(wc)
	}

	return opts
}

// ProbeTimeout bounds a single liveness round trip. The driver has no pool
// wait-queue setting, so wait_queue_timeout is applied here.
func (m *MongoConfig) ProbeTimeout() time.Duration {
	return durationOr(m.WaitQueueTimeout, 5*time.Second)
}

// ConnectDeadline bounds the whole startup sequence (dial, ping, index build).
func (m *MongoConfig) ConnectDeadline() time.Duration {
	return durationOr(m.ConnectTimeout, 10*time.Second) + durationOr(m.ServerSelectionTimeout, 5*time.Second)
}

// RedactedURI returns the connection string with its middle masked, suitable for logs.
func (m *MongoConfig) RedactedURI() string {
	const head, tail = 30, 20
	if len(m.URI) <= head+tail {
		return "***"
	}
	return m.URI[:head] + "***" + m.URI[len(m.URI)-tail:]
}

func writeConcern(v string) *writeconcern.WriteConcern {
	switch v {
	case "":
		return nil
	case "majority":
		return writeconcern.Majority()
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		return &writeconcern.WriteConcern{W: n}
	}
}

func effectiveMaxPoolSize(v uint64) uint64 {
	if v == 0 {
		return 10
	}
	return v
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
