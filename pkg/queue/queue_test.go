package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Queue {
	t.Helper()
	fq := NewFileQueue(t.TempDir())
	require.NoError(t, fq.Provision(context.Background()))
	t.Cleanup(func() { fq.Close() })

	mq := NewMemQueue()
	require.NoError(t, mq.Provision(context.Background()))

	return map[string]Queue{"file": fq, "mem": mq}
}

func TestSendReceiveAck(t *testing.T) {
	ctx := context.Background()
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, q.Send(ctx, []byte(`{"type":"process_file"}`)))

			msg, err := q.Receive(ctx, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, `{"type":"process_file"}`, string(msg.Body))

			_, err = q.Receive(ctx, time.Minute)
			assert.ErrorIs(t, err, ErrEmpty, "a claimed message must not be handed to a second receiver")

			require.NoError(t, q.Ack(ctx, msg))
		})
	}
}

func TestNackRedelivers(t *testing.T) {
	ctx := context.Background()
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, q.Send(ctx, []byte("job-1")))

			msg, err := q.Receive(ctx, time.Minute)
			require.NoError(t, err)

			require.NoError(t, q.Nack(ctx, msg))

			redelivered, err := q.Receive(ctx, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, "job-1", string(redelivered.Body))
		})
	}
}

func TestVisibilityTimeoutReclaimsAbandonedClaim(t *testing.T) {
	ctx := context.Background()
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, q.Send(ctx, []byte("job-1")))

			_, err := q.Receive(ctx, time.Millisecond)
			require.NoError(t, err)

			time.Sleep(20 * time.Millisecond)

			redelivered, err := q.Receive(ctx, time.Millisecond)
			require.NoError(t, err, "message claimed past its visibility timeout must become receivable again")
			assert.Equal(t, "job-1", string(redelivered.Body))
		})
	}
}

func TestReceiveEmptyQueue(t *testing.T) {
	ctx := context.Background()
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := q.Receive(ctx, time.Minute)
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}

func TestDepthReporter_CountsPendingAndClaimed(t *testing.T) {
	ctx := context.Background()
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dr, ok := q.(DepthReporter)
			require.True(t, ok, "%s must implement DepthReporter", name)

			n, err := dr.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			require.NoError(t, q.Send(ctx, []byte("job-1")))
			require.NoError(t, q.Send(ctx, []byte("job-2")))

			n, err = dr.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n, "two unclaimed messages")

			msg, err := q.Receive(ctx, time.Minute)
			require.NoError(t, err)

			n, err = dr.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n, "a claimed-but-unacked message still counts toward the backlog")

			require.NoError(t, q.Ack(ctx, msg))

			n, err = dr.Depth(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "acking drops the message from the backlog")
		})
	}
}

func TestFileQueueNotify(t *testing.T) {
	fq := NewFileQueue(t.TempDir())
	require.NoError(t, fq.Provision(context.Background()))
	defer fq.Close()

	require.NoError(t, fq.Send(context.Background(), []byte("x")))

	select {
	case <-fq.Notify():
	case <-time.After(time.Second):
		t.Fatal("expected a notify signal after Send")
	}
}
