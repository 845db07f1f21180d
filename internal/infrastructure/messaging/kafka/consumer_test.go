package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

type mockReader struct {
	fetchFunc  func(ctx context.Context) (kafka.Message, error)
	commitFunc func(ctx context.Context, msgs ...kafka.Message) error
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return m.fetchFunc(ctx)
}

func (m *mockReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockReader) Close() error { return nil }

type mockDeadLetterer struct {
	mu        sync.Mutex
	published []*Envelope
}

func (m *mockDeadLetterer) Publish(_ context.Context, _ string, _ string, env *Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, env)
	return nil
}

func newTestConsumer(r readerInterface, dl deadLetterer) *Consumer {
	return &Consumer{
		reader:      r,
		logger:      logging.NewNop(),
		deadLetter:  dl,
		dlTopic:     TopicDeadLetterProblems,
		handlers:    make(map[string]Handler),
		maxRetries:  consumerMaxRetries,
		baseBackoff: time.Millisecond,
		maxBackoff:  5 * time.Millisecond,
	}
}

func mustMessage(t *testing.T, topic string, payload interface{}) kafka.Message {
	t.Helper()
	env, err := NewEnvelope(topic, "test", payload)
	require.NoError(t, err)

	var p Producer
	p.logger = logging.NewNop()
	var captured kafka.Message
	p.writer = &mockWriter{writeFunc: func(_ context.Context, msgs ...kafka.Message) error {
		captured = msgs[0]
		return nil
	}}
	require.NoError(t, p.Publish(context.Background(), topic, "", env))
	return captured
}

func TestHandleMessage(t *testing.T) {
	t.Run("dispatches decoded envelope", func(t *testing.T) {
		c := newTestConsumer(&mockReader{}, nil)
		msg := mustMessage(t, TopicProblemSubmitted, ProblemSubmittedPayload{
			Title: "No validated biomarker panel for human aging rate",
		})

		var got ProblemSubmittedPayload
		c.handleMessage(context.Background(), msg, func(_ context.Context, env *Envelope) error {
			return env.DecodePayload(&got)
		})

		assert.Equal(t, "No validated biomarker panel for human aging rate", got.Title)
		assert.Equal(t, int64(1), c.Processed())
	})

	t.Run("exhausted retries route to dead letter", func(t *testing.T) {
		dl := &mockDeadLetterer{}
		c := newTestConsumer(&mockReader{}, dl)
		msg := mustMessage(t, TopicProblemSubmitted, ProblemSubmittedPayload{Title: "x"})

		attempts := 0
		c.handleMessage(context.Background(), msg, func(context.Context, *Envelope) error {
			attempts++
			return errors.New(errors.CodeInternal, "handler broken")
		})

		assert.Equal(t, consumerMaxRetries+1, attempts)
		require.Len(t, dl.published, 1)
		assert.Equal(t, "dead_letter", dl.published[0].EventType)
		assert.Equal(t, TopicProblemSubmitted, dl.published[0].Source)
		assert.Equal(t, int64(1), c.DeadLettered())
		assert.Equal(t, int64(0), c.Processed())
	})

	t.Run("undecodable message skips retries", func(t *testing.T) {
		dl := &mockDeadLetterer{}
		c := newTestConsumer(&mockReader{}, dl)

		called := false
		c.handleMessage(context.Background(),
			kafka.Message{Topic: TopicProblemSubmitted, Value: []byte("not json")},
			func(context.Context, *Envelope) error {
				called = true
				return nil
			})

		assert.False(t, called)
		require.Len(t, dl.published, 1)
	})
}

func TestConsumeLoopCommitsHandledMessages(t *testing.T) {
	msg := mustMessage(t, TopicProblemSubmitted, ProblemSubmittedPayload{Title: "x"})

	fetched := false
	committed := make(chan kafka.Message, 1)
	reader := &mockReader{
		fetchFunc: func(ctx context.Context) (kafka.Message, error) {
			if fetched {
				<-ctx.Done()
				return kafka.Message{}, ctx.Err()
			}
			fetched = true
			return msg, nil
		},
		commitFunc: func(_ context.Context, msgs ...kafka.Message) error {
			committed <- msgs[0]
			return nil
		},
	}

	c := newTestConsumer(reader, nil)
	c.Subscribe(TopicProblemSubmitted, func(context.Context, *Envelope) error { return nil })

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case got := <-committed:
		assert.Equal(t, TopicProblemSubmitted, got.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("message was never committed")
	}
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
}

func TestDecodeEnvelope(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.Error(t, err)

	env, err := NewEnvelope(TopicAnalysisCompleted, "analysis", AnalysisCompletedPayload{GapsOpen: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	var p AnalysisCompletedPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, 4, p.GapsOpen)
}
