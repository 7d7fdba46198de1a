package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader returns queued fetch errors first, then queued messages, then
// either closed (io.EOF) or blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	errs      []error
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
	fetches   int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.fetches++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return kafka.Message{}, io.EOF
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumer_Run(t *testing.T) {
	good, _ := json.Marshal(Event{Type: EmployeeCreated, Employee: testEmployee().Redacted()})
	rejected, _ := json.Marshal(Event{Type: EmployeeDeleted, Employee: testEmployee().Redacted()})
	reader := &fakeReader{queue: []kafka.Message{
		{Value: good},
		{Value: []byte("not json")},
		{Value: rejected},
	}}

	core, recorded := observer.New(zap.ErrorLevel)
	consumer := &Consumer{reader: reader, logger: zap.New(core)}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []EventType
	consumer.RegisterHandler(func(_ context.Context, ev Event) error {
		seen = append(seen, ev.Type)
		if ev.Type == EmployeeDeleted {
			defer cancel()
			return errors.New("rejected")
		}
		return nil
	})

	consumer.Run(ctx)

	assert.Equal(t, []EventType{EmployeeCreated, EmployeeDeleted}, seen)
	assert.Len(t, reader.committed, 1, "only the accepted message is committed")
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
}

func TestConsumer_RunStopsWhenReaderCloses(t *testing.T) {
	reader := &fakeReader{closed: true}
	core, recorded := observer.New(zap.InfoLevel)
	consumer := &Consumer{reader: reader, logger: zap.New(core)}

	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept fetching from a closed reader")
	}
	assert.Equal(t, 1, reader.fetches)
	assert.Equal(t, 1, recorded.FilterMessage("Kafka reader closed").Len())
	assert.Zero(t, recorded.FilterMessage("Failed to fetch message").Len())
}

func TestConsumer_RunBacksOffOnFetchErrors(t *testing.T) {
	good, _ := json.Marshal(Event{Type: EmployeeCreated, Employee: testEmployee().Redacted()})
	broker := errors.New("broker unavailable")
	reader := &fakeReader{
		errs:   []error{broker, broker, broker},
		queue:  []kafka.Message{{Value: good}},
		closed: true,
	}
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := &Consumer{reader: reader, logger: zap.New(core), retryMin: 20 * time.Millisecond}

	var seen []EventType
	consumer.RegisterHandler(func(_ context.Context, ev Event) error {
		seen = append(seen, ev.Type)
		return nil
	})

	start := time.Now()
	consumer.Run(context.Background())

	// Three waits of at least half the growing interval each.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, []EventType{EmployeeCreated}, seen)
	assert.Len(t, reader.committed, 1)
	assert.Equal(t, 3, recorded.FilterMessage("Failed to fetch message").Len())
}

func TestConsumer_RunCancelledDuringBackoff(t *testing.T) {
	reader := &fakeReader{errs: []error{errors.New("broker unavailable")}}
	consumer := &Consumer{reader: reader, logger: zap.NewNop(), retryMin: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run ignored cancellation while backing off")
	}
	assert.Equal(t, 1, reader.fetches)
}
