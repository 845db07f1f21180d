package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.CodeConflict, "consumer already running")

const (
	consumerMaxRetries = 3
	retryBaseBackoff   = time.Second
	retryMaxBackoff    = 30 * time.Second
)

// Handler processes one decoded event. A non-nil return triggers the retry
// and dead-letter path.
type Handler func(ctx context.Context, env *Envelope) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterer is the slice of Producer the consumer needs.
type deadLetterer interface {
	Publish(ctx context.Context, topic string, key string, env *Envelope) error
}

// Consumer reads envelopes from one consumer group and dispatches them by
// topic. Failed messages are retried with exponential backoff and then
// forwarded to the dead-letter topic so the group never stalls.
type Consumer struct {
	reader     readerInterface
	logger     logging.Logger
	deadLetter deadLetterer
	dlTopic    string

	handlers map[string]Handler
	mu       sync.RWMutex

	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	processed    atomic.Int64
	deadLettered atomic.Int64
}

// NewConsumer builds a consumer over topics. deadLetter may be nil, in which
// case exhausted messages are dropped with an error log.
func NewConsumer(cfg config.KafkaConfig, topics []string, deadLetter *Producer, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.CodeValidation, "kafka group id required")
	}
	if len(topics) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one topic required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		StartOffset: startOffset,
	})

	c := &Consumer{
		reader:      reader,
		logger:      logger.Named("kafka_consumer"),
		dlTopic:     TopicDeadLetterProblems,
		handlers:    make(map[string]Handler),
		maxRetries:  consumerMaxRetries,
		baseBackoff: retryBaseBackoff,
		maxBackoff:  retryMaxBackoff,
	}
	if deadLetter != nil {
		c.deadLetter = deadLetter
	}
	return c, nil
}

// Subscribe registers the handler for a topic. Messages on topics without a
// handler are committed and skipped.
func (c *Consumer) Subscribe(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
}

func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}

		c.mu.RLock()
		handler, ok := c.handlers[msg.Topic]
		c.mu.RUnlock()

		if ok {
			c.handleMessage(ctx, msg, handler)
		} else {
			c.logger.Warn("no handler for topic", logging.String("topic", msg.Topic))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Err(err))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message, handler Handler) {
	env, err := DecodeEnvelope(msg.Value)
	if err != nil {
		// Undecodable payloads go straight to the dead letter; retrying
		// cannot fix them.
		c.logger.Error("undecodable event",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		c.sendToDeadLetter(ctx, msg, err)
		return
	}

	backoff := c.baseBackoff
	for attempt := 0; ; attempt++ {
		err = handler(ctx, env)
		if err == nil {
			c.processed.Add(1)
			return
		}
		if attempt >= c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	c.logger.Error("event processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.String("event_id", env.EventID),
		logging.Err(err))
	c.sendToDeadLetter(ctx, msg, err)
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.deadLetter == nil {
		return
	}
	env := &Envelope{
		EventType:     "dead_letter",
		Source:        msg.Topic,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       msg.Value,
	}
	// Keep the original event id when the payload still decodes.
	if orig, err := DecodeEnvelope(msg.Value); err == nil {
		env.EventID = orig.EventID
	}
	if err := c.deadLetter.Publish(ctx, c.dlTopic, string(msg.Key), env); err != nil {
		c.logger.Error("dead letter publish failed",
			logging.Err(err),
			logging.String("cause", cause.Error()))
		return
	}
	c.deadLettered.Add(1)
}

// Processed returns the number of successfully handled events.
func (c *Consumer) Processed() int64 { return c.processed.Load() }

// DeadLettered returns the number of events routed to the dead-letter topic.
func (c *Consumer) DeadLettered() int64 { return c.deadLettered.Load() }

func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	c.logger.Info("kafka consumer closed", logging.Int64("processed", c.processed.Load()))
	return err
}
