package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/domain"
)

const defaultBuffer = 256

// MessageWriter delivers messages to a topic.
type MessageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher queues change events and delivers them from a single goroutine.
// Notify never blocks: when the queue is full the event is dropped and logged.
type Publisher struct {
	writer  MessageWriter
	topic   string
	queue   chan domain.ChangeEvent
	timeout time.Duration
	logger  logrus.FieldLogger
	done    chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithBuffer sets the queue capacity.
func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan domain.ChangeEvent, n)
		}
	}
}

// NewPublisher constructs a Publisher writing to topic.
func NewPublisher(writer MessageWriter, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		writer:  writer,
		topic:   topic,
		queue:   make(chan domain.ChangeEvent, defaultBuffer),
		timeout: 10 * time.Second,
		logger:  logrus.StandardLogger(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify implements domain.ChangeNotifier.
func (p *Publisher) Notify(_ context.Context, event domain.ChangeEvent) {
	select {
	case p.queue <- event:
	default:
		p.logger.WithFields(logrus.Fields{
			"event_type": event.Type,
			"record_id":  event.RecordID,
		}).Warn("event queue full, dropping")
	}
}

// Run delivers queued events until ctx ends, then drains what is left.
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-p.queue:
					p.deliver(context.Background(), event)
				default:
					return
				}
			}
		case event := <-p.queue:
			p.deliver(ctx, event)
		}
	}
}

// Wait blocks until Run has returned.
func (p *Publisher) Wait() {
	<-p.done
}

func (p *Publisher) deliver(ctx context.Context, event domain.ChangeEvent) {
	log := p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"record_id":  event.RecordID,
		"topic":      p.topic,
	})

	msg, err := encode(event)
	if err != nil {
		log.WithError(err).Error("encode event failed")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, p.topic, msg); err != nil {
		log.WithError(err).Error("publish event failed")
		return
	}
	log.Debug("event published")
}

func encode(event domain.ChangeEvent) (kafka.Message, error) {
	id := uuid.NewString()
	body, err := json.Marshal(Envelope{
		EventID:    id,
		EventType:  event.Type,
		RecordID:   event.RecordID,
		OccurredAt: event.OccurredAt,
		Record:     payloadFor(event.Record),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.RecordID, 10)),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(id)},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "record_type", Value: []byte(recordType(event.Record))},
		},
	}, nil
}

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{}

// Notify implements domain.ChangeNotifier.
func (Nop) Notify(context.Context, domain.ChangeEvent) {}
