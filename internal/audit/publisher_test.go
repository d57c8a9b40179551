package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncEmit(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)

	err := pub.Emit(context.Background(), Event{
		Action:       EventCredentialIssued,
		CredentialID: "vc-demo-1",
	})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventCredentialIssued, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(16), WithLogger(slog.Default()))

	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{
			Action:       EventCredentialPresented,
			CredentialID: "vc-demo-1",
		}))
	}
	pub.Close()

	assert.Len(t, sink.ByAction(EventCredentialPresented), 10)
}

func TestPublisher_AsyncFullBufferDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	pub := NewPublisher(sink, WithAsyncBuffer(1), WithLogger(slog.Default()))

	// First event occupies the worker, second fills the buffer, third drops.
	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: EventBenefitRecorded}))
	}
	close(sink.release)
	pub.Close()

	assert.LessOrEqual(t, len(sink.Events()), 2)
}

type blockingSink struct {
	MemorySink
	release chan struct{}
}

func (s *blockingSink) Append(ctx context.Context, event Event) error {
	<-s.release
	return s.MemorySink.Append(ctx, event)
}

func TestMemorySink_ByAction(t *testing.T) {
	sink := NewMemorySink()
	_ = sink.Append(context.Background(), Event{Action: EventCredentialIssued, Timestamp: time.Now()})
	_ = sink.Append(context.Background(), Event{Action: EventCredentialRevoked, Timestamp: time.Now()})

	assert.Len(t, sink.ByAction(EventCredentialIssued), 1)
	assert.Empty(t, sink.ByAction(EventBenefitUpdated))
}
