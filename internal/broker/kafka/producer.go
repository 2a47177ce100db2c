package kafka

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w          messageWriter
	closer     func() error
	newBackOff func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(10*time.Second),
	), 4)
}

func NewProducer(brokers []string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	p := newProducerWithWriter(w, defaultBackOff)
	p.closer = w.Close
	return p
}

func newProducerWithWriter(w messageWriter, bo func() backoff.BackOff) *Producer {
	if bo == nil {
		bo = defaultBackOff
	}
	return &Producer{w: w, newBackOff: bo, closer: func() error { return nil }}
}

// Publish retries transient write failures with exponential backoff.
// Key is the shipment id, so updates of one AWB keep their order within a partition.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	op := func() error {
		return p.w.WriteMessages(ctx, msg)
	}
	if err := backoff.Retry(op, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

func (p *Producer) Close() error {
	return p.closer()
}
