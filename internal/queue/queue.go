package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"propwatch/server/internal/listing"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
)

// Batch is one leaf search's worth of discovered listing summaries.
type Batch struct {
	Channel   listing.Channel
	Summaries []listing.Summary
}

// SummaryQueue is the in-memory hand-off between concurrent leaf searches and
// the batch writer. Discovered summaries must not be dropped, so Push blocks
// when the buffer is full.
type SummaryQueue struct {
	items  chan Batch
	closed bool
	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewSummaryQueue creates a summary queue with the specified buffer size.
func NewSummaryQueue(bufferSize int, logger *logrus.Logger) *SummaryQueue {
	return &SummaryQueue{
		items:  make(chan Batch, bufferSize),
		logger: logger,
	}
}

// Push adds a batch to the queue, blocking until buffer space is available
// or the context is cancelled.
func (q *SummaryQueue) Push(ctx context.Context, batch Batch) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch.Summaries)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the next batch, blocking until one is available, the queue is
// closed and drained, or the context is cancelled.
func (q *SummaryQueue) Pop(ctx context.Context) (Batch, error) {
	select {
	case batch, ok := <-q.items:
		if !ok {
			return Batch{}, ErrQueueClosed
		}
		return batch, nil
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	}
}

// Close stops the queue. Pending batches remain readable until drained.
func (q *SummaryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// Len returns the current number of buffered batches.
func (q *SummaryQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *SummaryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
