package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
)

const (
	initialRetryTime = 1

	headerEventType = "event-type"
)

type Producer struct {
	log        *slog.Logger
	producer   sarama.AsyncProducer
	topic      string
	retries    int
	maxTimeout int
	done       chan struct{}
}

// NewProducer creates new kafka producer. If brokers are not reachable the
// creation is retried with backoff up to retries times
func NewProducer(
	ctx context.Context,
	log *slog.Logger,
	addrs []string,
	topic string,
	maxTimeout int,
	retries int,
) (*Producer, error) {
	const op = "kafka.NewProducer"
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Timeout = time.Duration(maxTimeout) * time.Second

	p, err := sarama.NewAsyncProducer(addrs, cfg)
	if err != nil {
		log.Warn("failed to create producer, retrying", slog.String("op", op), sl.Err(err))
		p, err = tryToCreateProducer(ctx, addrs, cfg, maxTimeout, retries)
		if err != nil {
			return nil, fail(op, err)
		}
	}

	return newProducer(log, p, topic, maxTimeout, retries), nil
}

func newProducer(
	log *slog.Logger,
	p sarama.AsyncProducer,
	topic string,
	maxTimeout int,
	retries int,
) *Producer {
	producer := &Producer{
		log:        log,
		producer:   p,
		topic:      topic,
		retries:    retries,
		maxTimeout: maxTimeout,
		done:       make(chan struct{}),
	}

	go producer.watchErrors()

	return producer
}

// tryToCreateProducer tries to make producer instance
func tryToCreateProducer(
	ctx context.Context,
	addrs []string,
	cfg *sarama.Config,
	maxTimeout, retries int,
) (sarama.AsyncProducer, error) {
	const op = "kafka.tryToCreateProducer"
	var (
		err error
		p   sarama.AsyncProducer
	)
	timeout := initialRetryTime

	for retries > 0 {
		retries--

		select {
		case <-ctx.Done():
			return nil, fail(op, ctx.Err())
		case <-time.After(time.Duration(timeout) * time.Second):
		}

		p, err = sarama.NewAsyncProducer(addrs, cfg)
		if err == nil {
			return p, nil
		}

		timeout *= 2
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	return nil, fail(op, err)
}

// Send sends page of events to kafka
func (p *Producer) Send(ctx context.Context, page []models.Event) error {
	const op = "producer.Send"
	log := p.log.With(slog.String("op", op))

	for _, event := range page {
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(event.Id),
			Value: sarama.StringEncoder(event.Payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte(headerEventType), Value: []byte(event.Type)},
			},
			Timestamp: event.CreatedAt,
		}

		select {
		case p.producer.Input() <- msg:
		case <-ctx.Done():
			log.Info("failed to send all messages", sl.Err(ctx.Err()))
			return fail(op, ctx.Err())
		}
	}

	log.Info("all events was sent successfully", slog.Int("count", len(page)))
	return nil
}

// Stop stops kafka producer, but the first trying to send all messages
func (p *Producer) Stop() {
	const op = "producer.Stop"
	p.log.Info("starting to stop producer", slog.String("op", op))
	err := p.producer.Close()
	if err != nil {
		p.log.Error(
			"error during closing",
			slog.String("op", op),
			sl.Err(err),
		)
	}
	<-p.done
}

// watchErrors logs delivery failures until the producer is closed
func (p *Producer) watchErrors() {
	const op = "producer.watchErrors"
	defer close(p.done)

	for perr := range p.producer.Errors() {
		p.log.Error(
			"failed to deliver message",
			slog.String("op", op),
			slog.String("topic", perr.Msg.Topic),
			sl.Err(perr.Err),
		)
	}
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
