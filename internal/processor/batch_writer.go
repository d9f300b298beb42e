package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"propwatch/server/internal/listing"
	"propwatch/server/internal/queue"
)

type locationStore interface {
	RecordDiscoveredLocations(summaries []listing.Summary, channel listing.Channel) (int, error)
}

// Options configures the batch writer.
type Options struct {
	// WriterCount is the number of concurrent drain goroutines.
	WriterCount int

	// MaxRetries is the number of retries for a failed batch write.
	MaxRetries int

	// RetryDelay is the wait between retries.
	RetryDelay time.Duration
}

// BatchWriter drains discovered-summary batches from the queue into the
// store, with bounded retry on write failures.
type BatchWriter struct {
	store     locationStore
	queue     *queue.SummaryQueue
	logger    *logrus.Logger
	opts      Options
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchWriter creates a batch writer instance.
func NewBatchWriter(st locationStore, q *queue.SummaryQueue, opts Options, logger *logrus.Logger) *BatchWriter {
	if opts.WriterCount <= 0 {
		opts.WriterCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchWriter{
		store:  st,
		queue:  q,
		logger: logger,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins draining batches from the queue.
func (w *BatchWriter) Start() {
	for i := 0; i < w.opts.WriterCount; i++ {
		w.waitGroup.Add(1)
		go w.drainLoop()
	}
}

// Stop cancels the drain loops and waits for them to finish.
func (w *BatchWriter) Stop() {
	w.cancel()
	w.waitGroup.Wait()
}

// Wait blocks until every drain loop has exited, which happens once the
// queue is closed and empty.
func (w *BatchWriter) Wait() {
	w.waitGroup.Wait()
}

func (w *BatchWriter) drainLoop() {
	defer w.waitGroup.Done()

	for {
		batch, err := w.queue.Pop(w.ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				w.logger.WithError(err).Error("Queue drain failed")
			}
			return
		}
		if err := w.writeBatch(batch); err != nil {
			w.logger.WithError(err).Error("Dropping summary batch after repeated write failures")
		}
	}
}

// writeBatch persists a single batch with retry and delay.
func (w *BatchWriter) writeBatch(batch queue.Batch) error {
	var err error
	for attempt := 0; attempt <= w.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			w.logger.Infof("Retrying batch write, attempt %d of %d", attempt, w.opts.MaxRetries)
			select {
			case <-time.After(w.opts.RetryDelay):
			case <-w.ctx.Done():
				return w.ctx.Err()
			}
		}

		var inserted int
		inserted, err = w.store.RecordDiscoveredLocations(batch.Summaries, batch.Channel)
		if err == nil {
			w.logger.WithFields(logrus.Fields{
				"batch_size": len(batch.Summaries),
				"inserted":   inserted,
				"channel":    batch.Channel,
			}).Debug("Recorded discovered locations")
			return nil
		}

		w.logger.WithError(err).Error("Batch write failed")
	}
	return err
}
