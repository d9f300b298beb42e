package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"propwatch/server/config"
	"propwatch/server/internal/geofence"
	"propwatch/server/internal/listing"
	"propwatch/server/internal/search"
	"propwatch/server/internal/store"
)

// ErrJobRunning is returned by a trigger when another job holds the slot.
var ErrJobRunning = errors.New("a job is already running")

// Status reports what the scheduler is doing and when it last did it.
type Status struct {
	CurrentJob  string     `json:"current_job"`
	LastIngest  *time.Time `json:"last_ingest"`
	LastRefresh *time.Time `json:"last_refresh"`
}

// Scheduler runs the ingestion pipeline on a fixed cadence: an hourly area
// search plus backfill, and a nightly refresh of stale versions. Jobs are
// strictly sequential; triggers from the API share the same slot.
type Scheduler struct {
	searcher *search.Searcher
	engine   *geofence.Engine
	cfg      *config.Config
	logger   *logrus.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex
	isStartupRun atomic.Bool

	statusMu    sync.Mutex
	currentJob  string
	lastIngest  *time.Time
	lastRefresh *time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(searcher *search.Searcher, engine *geofence.Engine, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		searcher: searcher,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
	s.isStartupRun.Store(true)
	return s
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop cancels any in-flight job and waits for the loop to exit. Version
// chain writes are transactional per property, so cancellation cannot leave
// a half-closed row behind.
func (s *Scheduler) Stop() {
	s.cancel()
	close(s.stopChan)
	s.wg.Wait()
}

// Status returns the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return Status{
		CurrentJob:  s.currentJob,
		LastIngest:  s.lastIngest,
		LastRefresh: s.lastRefresh,
	}
}

// TriggerIngest starts a full ingest cycle unless a job is already running.
func (s *Scheduler) TriggerIngest() error {
	return s.triggerJob("ingest", s.runIngestCycle)
}

// TriggerGeofence starts a geofencing pass unless a job is already running.
func (s *Scheduler) TriggerGeofence() error {
	return s.triggerJob("geofence", func(ctx context.Context) {
		if _, err := s.engine.Run(ctx); err != nil {
			s.logger.WithError(err).Error("Geofencing pass failed")
		}
	})
}

func (s *Scheduler) triggerJob(name string, job func(context.Context)) error {
	if !s.jobMutex.TryLock() {
		return ErrJobRunning
	}
	go func() {
		defer s.jobMutex.Unlock()
		s.setCurrentJob(name)
		defer s.setCurrentJob("")
		job(s.ctx)
	}()
	return nil
}

func (s *Scheduler) setCurrentJob(name string) {
	s.statusMu.Lock()
	s.currentJob = name
	s.statusMu.Unlock()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Startup run catches up on everything missed while the process was
	// down, then hands over to the ticker.
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup ingest")
		s.setCurrentJob("ingest")
		s.runIngestCycle(s.ctx)
		s.setCurrentJob("")
		s.isStartupRun.Store(false)
		s.logger.Info("Startup ingest completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	if s.isStartupRun.Load() {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}
	if t.Minute() != 0 {
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if t.Hour() == 0 {
		s.logger.Info("Starting scheduled refresh cycle")
		s.setCurrentJob("refresh")
		s.runRefreshCycle(s.ctx)
		s.setCurrentJob("")
		s.logger.Info("Completed scheduled refresh cycle")
		return
	}

	s.logger.Info("Starting scheduled ingest cycle")
	s.setCurrentJob("ingest")
	s.runIngestCycle(s.ctx)
	s.setCurrentJob("")
	s.logger.Info("Completed scheduled ingest cycle")
}

// runIngestCycle discovers new listings for every configured channel, fetches
// details for properties with no data yet, and runs a geofencing pass over
// anything new.
func (s *Scheduler) runIngestCycle(ctx context.Context) {
	root := search.Viewport{
		Lat1: s.cfg.Search.Lat1,
		Lat2: s.cfg.Search.Lat2,
		Lon1: s.cfg.Search.Lon1,
		Lon2: s.cfg.Search.Lon2,
	}

	for _, channel := range s.cfg.Search.Channels {
		opts := listing.SearchOptions{
			Channel: listing.Channel(channel),
			Radius:  s.cfg.Search.Radius,
			Exclude: s.cfg.Search.Exclude,
		}

		if _, err := s.searcher.RunAreaSearch(ctx, s.cfg.Search.Region, root, opts); err != nil {
			s.logger.WithError(err).WithField("channel", channel).Error("Area search failed")
			continue
		}
		if _, err := s.searcher.RunDetailFetch(ctx, listing.Channel(channel), store.Backfill, nil); err != nil {
			s.logger.WithError(err).WithField("channel", channel).Error("Detail backfill failed")
		}
	}

	if _, err := s.engine.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Geofencing pass failed")
	}

	now := time.Now()
	s.statusMu.Lock()
	s.lastIngest = &now
	s.statusMu.Unlock()
}

// runRefreshCycle re-fetches details for properties whose current version is
// older than the configured cutoff, closing the versions of anything that
// has been delisted.
func (s *Scheduler) runRefreshCycle(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-time.Duration(s.cfg.Ingest.RefreshAfter) * time.Hour)

	for _, channel := range s.cfg.Search.Channels {
		if _, err := s.searcher.RunDetailFetch(ctx, listing.Channel(channel), store.Refresh, &cutoff); err != nil {
			s.logger.WithError(err).WithField("channel", channel).Error("Detail refresh failed")
		}
	}

	if _, err := s.engine.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Geofencing pass failed")
	}

	now := time.Now()
	s.statusMu.Lock()
	s.lastRefresh = &now
	s.statusMu.Unlock()
}
