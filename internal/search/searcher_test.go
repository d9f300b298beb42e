package search

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propwatch/server/internal/listing"
	"propwatch/server/internal/queue"
	"propwatch/server/internal/store"
)

// fakeClient serves canned area-search results keyed by a caller-supplied
// count function, and records every searched viewport.
type fakeClient struct {
	mu       sync.Mutex
	searched []Viewport
	countFor func(v Viewport) int
	details  map[int64]listing.Detail
	fetchErr error
	fetched  [][]int64
}

func (f *fakeClient) ResolveRegion(ctx context.Context, term string) (string, error) {
	return "REGION^1", nil
}

func (f *fakeClient) SearchArea(ctx context.Context, region string, lat1, lat2, lon1, lon2 float64, opts listing.SearchOptions) (*listing.SearchResult, error) {
	v := Viewport{Lat1: lat1, Lat2: lat2, Lon1: lon1, Lon2: lon2}
	f.mu.Lock()
	f.searched = append(f.searched, v)
	f.mu.Unlock()

	count := f.countFor(v)
	result := &listing.SearchResult{Properties: make([]listing.Summary, count)}
	for i := range result.Properties {
		result.Properties[i].ID = int64(i + 1)
	}
	return result, nil
}

func (f *fakeClient) FetchDetails(ctx context.Context, channel listing.Channel, ids []int64) (map[int64]listing.Detail, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, ids)
	f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make(map[int64]listing.Detail)
	for _, id := range ids {
		if d, ok := f.details[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (f *fakeClient) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searched)
}

type fakeStore struct {
	batches [][]int64
	applied [][]int64
	result  store.ApplyResult
}

func (s *fakeStore) CountPending(mode store.PendingMode, channel listing.Channel, cutoff *time.Time) (int64, error) {
	var n int64
	for _, b := range s.batches {
		n += int64(len(b))
	}
	return n, nil
}

func (s *fakeStore) PendingIDs(mode store.PendingMode, channel listing.Channel, cutoff *time.Time, batchSize int, fn func(ids []int64) error) error {
	for _, b := range s.batches {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) ApplyDetailBatch(details map[int64]listing.Detail, requested []int64) (store.ApplyResult, error) {
	s.applied = append(s.applied, requested)
	return s.result, nil
}

func newTestSearcher(client *fakeClient, st ingestStore, opts Options) (*Searcher, *queue.SummaryQueue) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	q := queue.NewSummaryQueue(1024, logger)
	return NewSearcher(client, st, q, opts, logger), q
}

func TestRunAreaSearch_SingleLeaf(t *testing.T) {
	client := &fakeClient{countFor: func(v Viewport) int { return 100 }}
	searcher, q := newTestSearcher(client, &fakeStore{}, Options{ResultCap: 400})

	root := Viewport{Lat1: 51.3, Lat2: 51.7, Lon1: -0.5, Lon2: 0.3}
	progress, err := searcher.RunAreaSearch(context.Background(), "LONDON", root,
		listing.SearchOptions{Channel: listing.ChannelBuy, Radius: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, client.searchCount())
	assert.Equal(t, 1, progress.Leaves())
	assert.InDelta(t, root.Area(), progress.Covered(), 1e-9)
	assert.Equal(t, 1, q.Len())
}

func TestRunAreaSearch_OverCapSplitsInTwo(t *testing.T) {
	root := Viewport{Lat1: 51.3, Lat2: 51.7, Lon1: -0.5, Lon2: 0.5}
	client := &fakeClient{countFor: func(v Viewport) int {
		// Only the root box is over the cap.
		if v.Area() >= root.Area()-1e-12 {
			return 500
		}
		return 50
	}}
	searcher, _ := newTestSearcher(client, &fakeStore{}, Options{ResultCap: 400})

	progress, err := searcher.RunAreaSearch(context.Background(), "LONDON", root,
		listing.SearchOptions{Channel: listing.ChannelBuy, Radius: 5})
	require.NoError(t, err)

	// Root plus exactly two halves.
	assert.Equal(t, 3, client.searchCount())
	assert.Equal(t, 2, progress.Leaves())

	// The root is wider than it is tall, so both halves keep the full
	// latitude span.
	client.mu.Lock()
	defer client.mu.Unlock()
	for _, v := range client.searched[1:] {
		assert.Equal(t, root.Lat1, v.Lat1)
		assert.Equal(t, root.Lat2, v.Lat2)
	}
}

func TestRunAreaSearch_AreaAccounting(t *testing.T) {
	// Split three levels deep: every box above a size floor is over cap.
	root := Viewport{Lat1: 51.0, Lat2: 52.0, Lon1: 0.0, Lon2: 1.0}
	client := &fakeClient{countFor: func(v Viewport) int {
		if v.Area() > root.Area()/8+1e-12 {
			return 500
		}
		return 10
	}}
	searcher, _ := newTestSearcher(client, &fakeStore{}, Options{ResultCap: 400})

	progress, err := searcher.RunAreaSearch(context.Background(), "LONDON", root,
		listing.SearchOptions{Channel: listing.ChannelBuy, Radius: 5})
	require.NoError(t, err)

	// Leaf areas must sum to the root area exactly, whatever the shape of
	// the recursion tree.
	assert.InDelta(t, root.Area(), progress.Covered(), 1e-9)
	assert.Equal(t, 8, progress.Leaves())
}

func TestRunAreaSearch_MaxDepthBoundsRecursion(t *testing.T) {
	// Upstream always reports an over-cap box: without a depth bound this
	// would split forever.
	client := &fakeClient{countFor: func(v Viewport) int { return 500 }}
	searcher, _ := newTestSearcher(client, &fakeStore{}, Options{ResultCap: 400, MaxDepth: 3})

	root := Viewport{Lat1: 51.0, Lat2: 52.0, Lon1: 0.0, Lon2: 1.0}
	progress, err := searcher.RunAreaSearch(context.Background(), "LONDON", root,
		listing.SearchOptions{Channel: listing.ChannelBuy, Radius: 5})
	require.NoError(t, err)

	assert.Equal(t, 8, progress.Leaves())
	assert.InDelta(t, root.Area(), progress.Covered(), 1e-9)
	assert.Equal(t, 15, client.searchCount())
}

func TestRunAreaSearch_DegenerateBoxIsLeaf(t *testing.T) {
	client := &fakeClient{countFor: func(v Viewport) int { return 500 }}
	searcher, _ := newTestSearcher(client, &fakeStore{}, Options{ResultCap: 400, MaxDepth: 50})

	// A point-sized box cannot be split further.
	root := Viewport{Lat1: 51.5, Lat2: 51.5, Lon1: 0.25, Lon2: 0.25}
	progress, err := searcher.RunAreaSearch(context.Background(), "LONDON", root,
		listing.SearchOptions{Channel: listing.ChannelBuy, Radius: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, client.searchCount())
	assert.Equal(t, 1, progress.Leaves())
}

func TestRunDetailFetch(t *testing.T) {
	client := &fakeClient{
		details: map[int64]listing.Detail{
			1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3},
		},
	}
	st := &fakeStore{
		batches: [][]int64{{1, 2}, {3}},
		result:  store.ApplyResult{Inserted: 1},
	}
	searcher, _ := newTestSearcher(client, st, Options{DetailBatchSize: 2})

	report, err := searcher.RunDetailFetch(context.Background(), listing.ChannelBuy, store.Backfill, nil)
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{1, 2}, {3}}, client.fetched)
	assert.Equal(t, [][]int64{{1, 2}, {3}}, st.applied)
	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 2, report.Inserted)
}

func TestRunDetailFetch_BatchFailureIsSoft(t *testing.T) {
	client := &fakeClient{fetchErr: errors.New("connection reset")}
	st := &fakeStore{batches: [][]int64{{1, 2}, {3}}}
	searcher, _ := newTestSearcher(client, st, Options{DetailBatchSize: 2})

	report, err := searcher.RunDetailFetch(context.Background(), listing.ChannelBuy, store.Backfill, nil)
	require.NoError(t, err)

	// Every batch was attempted despite the failures.
	assert.Len(t, client.fetched, 2)
	assert.Empty(t, st.applied)
	assert.Equal(t, 3, report.Failed)
}

func TestRunDetailFetch_MalformedResponseDoesNotDelist(t *testing.T) {
	// An undecodable response says nothing about the requested ids, so the
	// batch must never reach the store, where absent ids would close their
	// version chains.
	client := &fakeClient{fetchErr: listing.ErrMalformedResponse}
	st := &fakeStore{batches: [][]int64{{1, 2, 3}}}
	searcher, _ := newTestSearcher(client, st, Options{DetailBatchSize: 25})

	report, err := searcher.RunDetailFetch(context.Background(), listing.ChannelBuy, store.Backfill, nil)
	require.NoError(t, err)

	assert.Empty(t, st.applied)
	assert.Equal(t, 3, report.Failed)
	assert.Zero(t, report.Closed)
}

func TestRunDetailFetch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	st := &fakeStore{batches: [][]int64{{1}}}
	searcher, _ := newTestSearcher(client, st, Options{})

	_, err := searcher.RunDetailFetch(ctx, listing.ChannelBuy, store.Backfill, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
