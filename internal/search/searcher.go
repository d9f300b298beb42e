package search

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"propwatch/server/internal/listing"
	"propwatch/server/internal/queue"
	"propwatch/server/internal/store"
)

// minSpan is the box-size floor below which a viewport is treated as a leaf
// no matter how many results it returns.
const minSpan = 1e-6

type areaClient interface {
	ResolveRegion(ctx context.Context, term string) (string, error)
	SearchArea(ctx context.Context, region string, lat1, lat2, lon1, lon2 float64, opts listing.SearchOptions) (*listing.SearchResult, error)
	FetchDetails(ctx context.Context, channel listing.Channel, ids []int64) (map[int64]listing.Detail, error)
}

type ingestStore interface {
	CountPending(mode store.PendingMode, channel listing.Channel, cutoff *time.Time) (int64, error)
	PendingIDs(mode store.PendingMode, channel listing.Channel, cutoff *time.Time, batchSize int, fn func(ids []int64) error) error
	ApplyDetailBatch(details map[int64]listing.Detail, requested []int64) (store.ApplyResult, error)
}

// Options bound the search fan-out and the detail-fetch batching.
type Options struct {
	// ResultCap is the upstream per-query result ceiling; a viewport at or
	// above it is split.
	ResultCap int

	// MaxDepth caps the recursion so degenerate regions cannot split forever.
	MaxDepth int

	// MaxInFlight bounds concurrent area-search requests.
	MaxInFlight int64

	// DetailBatchSize is the number of ids per detail fetch call.
	DetailBatchSize int
}

// Searcher coordinates the two orchestration phases: the recursive area
// discovery fan-out and the sequential detail-fetch stream.
type Searcher struct {
	client   areaClient
	store    ingestStore
	queue    *queue.SummaryQueue
	logger   *logrus.Logger
	opts     Options
	inFlight *semaphore.Weighted
}

// NewSearcher creates a searcher.
func NewSearcher(client areaClient, st ingestStore, q *queue.SummaryQueue, opts Options, logger *logrus.Logger) *Searcher {
	if opts.ResultCap <= 0 {
		opts.ResultCap = 400
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 16
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	if opts.DetailBatchSize <= 0 {
		opts.DetailBatchSize = 25
	}
	return &Searcher{
		client:   client,
		store:    st,
		queue:    q,
		logger:   logger,
		opts:     opts,
		inFlight: semaphore.NewWeighted(opts.MaxInFlight),
	}
}

// RunAreaSearch discovers every listing inside the root viewport. Boxes whose
// result count reaches the cap are split along their longer dimension and
// both halves searched concurrently; the call returns only once the whole
// recursive tree has completed. Leaf summaries are handed to the queue.
func (s *Searcher) RunAreaSearch(ctx context.Context, term string, root Viewport, searchOpts listing.SearchOptions) (*Progress, error) {
	region, err := s.client.ResolveRegion(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("area search aborted: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"region":  region,
		"channel": searchOpts.Channel,
		"area":    root.Area(),
	}).Info("Starting area search")

	progress := NewProgress(root.Area())
	if err := s.searchBox(ctx, region, root, searchOpts, 0, progress); err != nil {
		return progress, err
	}

	s.logger.WithFields(logrus.Fields{
		"leaves":  progress.Leaves(),
		"covered": progress.Covered(),
	}).Info("Area search complete")
	return progress, nil
}

// searchBox searches one viewport and either records it as a leaf or splits
// it. Each split spawns both halves in an errgroup, so a parent joins its
// whole subtree before returning.
func (s *Searcher) searchBox(ctx context.Context, region string, vp Viewport, searchOpts listing.SearchOptions, depth int, progress *Progress) error {
	if err := s.inFlight.Acquire(ctx, 1); err != nil {
		return err
	}
	result, err := s.client.SearchArea(ctx, region, vp.Lat1, vp.Lat2, vp.Lon1, vp.Lon2, searchOpts)
	s.inFlight.Release(1)
	if err != nil {
		return err
	}

	if result.Count() < s.opts.ResultCap || depth >= s.opts.MaxDepth || vp.Degenerate(minSpan) {
		if depth >= s.opts.MaxDepth {
			s.logger.WithFields(logrus.Fields{
				"depth": depth,
				"count": result.Count(),
			}).Warn("Max recursion depth reached, recording over-cap box as leaf")
		}
		if len(result.Properties) > 0 {
			err := s.queue.Push(ctx, queue.Batch{
				Channel:   searchOpts.Channel,
				Summaries: result.Properties,
			})
			if err != nil {
				return fmt.Errorf("failed to queue leaf summaries: %w", err)
			}
		}
		progress.Add(vp.Area())
		return nil
	}

	a, b := vp.Split()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.searchBox(ctx, region, a, searchOpts, depth+1, progress)
	})
	g.Go(func() error {
		return s.searchBox(ctx, region, b, searchOpts, depth+1, progress)
	})
	return g.Wait()
}

// FetchReport summarises one detail-fetch run.
type FetchReport struct {
	Requested int
	Inserted  int
	Updated   int
	Closed    int
	Failed    int
}

// RunDetailFetch streams pending ids for a channel in fixed-size batches and
// ingests each response before fetching the next. Only one detail request is
// outstanding at a time: each result feeds the store synchronously.
func (s *Searcher) RunDetailFetch(ctx context.Context, channel listing.Channel, mode store.PendingMode, cutoff *time.Time) (FetchReport, error) {
	var report FetchReport

	total, err := s.store.CountPending(mode, channel, cutoff)
	if err != nil {
		return report, err
	}
	s.logger.WithFields(logrus.Fields{
		"channel": channel,
		"mode":    mode.String(),
		"pending": total,
	}).Info("Starting detail fetch")

	err = s.store.PendingIDs(mode, channel, cutoff, s.opts.DetailBatchSize, func(ids []int64) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		details, err := s.client.FetchDetails(ctx, channel, ids)
		if err != nil {
			// Soft failure: the batch yields no data and the run continues.
			s.logger.WithError(err).WithField("batch_size", len(ids)).Warn("Detail fetch failed, skipping batch")
			report.Failed += len(ids)
			return nil
		}

		result, err := s.store.ApplyDetailBatch(details, ids)
		if err != nil {
			return err
		}

		report.Requested += len(ids)
		report.Inserted += result.Inserted
		report.Updated += result.Updated
		report.Closed += result.Closed
		report.Failed += result.Failed

		s.logger.WithFields(logrus.Fields{
			"channel":   channel,
			"completed": report.Requested,
			"pending":   total,
		}).Info("Detail batch ingested")
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("detail fetch failed: %w", err)
	}

	return report, nil
}
