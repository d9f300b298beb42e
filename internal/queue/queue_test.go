package queue

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propwatch/server/internal/listing"
)

func newTestQueue(size int) *SummaryQueue {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSummaryQueue(size, logger)
}

func makeBatch(ids ...int64) Batch {
	batch := Batch{Channel: listing.ChannelBuy}
	for _, id := range ids {
		var s listing.Summary
		s.ID = id
		batch.Summaries = append(batch.Summaries, s)
	}
	return batch
}

func TestQueuePushPop(t *testing.T) {
	q := newTestQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, makeBatch(1, 2)))
	require.NoError(t, q.Push(ctx, makeBatch(3)))
	assert.Equal(t, 2, q.Len())

	batch, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Len(t, batch.Summaries, 2)
	assert.Equal(t, int64(1), batch.Summaries[0].ID)

	batch, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Len(t, batch.Summaries, 1)
	assert.Equal(t, 0, q.Len())
}

func TestQueuePushBlocksWhenFull(t *testing.T) {
	q := newTestQueue(1)
	require.NoError(t, q.Push(context.Background(), makeBatch(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, makeBatch(2))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueCloseDrainsRemaining(t *testing.T) {
	q := newTestQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, makeBatch(1)))
	require.NoError(t, q.Close())
	assert.True(t, q.IsClosed())

	// Buffered batches stay readable after close.
	batch, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), batch.Summaries[0].ID)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueuePushAfterClose(t *testing.T) {
	q := newTestQueue(4)
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Push(context.Background(), makeBatch(1)), ErrQueueClosed)

	// Closing twice is harmless.
	require.NoError(t, q.Close())
}

func TestQueuePopRespectsContext(t *testing.T) {
	q := newTestQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
