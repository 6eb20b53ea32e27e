package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the periodic sync scheduler.
type SchedulerConfig struct {
	// TickInterval is how often settings are re-read and due syncs launched.
	// Default: 1 minute.
	TickInterval time.Duration

	// RunTimeout bounds one sync run. Default: 10 minutes. The run is
	// abandoned at the next page boundary when exceeded.
	RunTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval: 1 * time.Minute,
		RunTimeout:   10 * time.Minute,
	}
}

// Scheduler launches periodic sync passes driven by the Settings intervals.
// Settings are re-read on every tick, so interval or autoSync changes take
// effect without a restart. All launches funnel through SyncService.Run and
// inherit its single-flight protection.
type Scheduler struct {
	sync     *SyncService
	settings *SettingsService
	config   SchedulerConfig

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex

	lastRun map[SyncKind]time.Time
}

// NewScheduler creates a sync scheduler.
func NewScheduler(syncSvc *SyncService, settings *SettingsService, config SchedulerConfig) *Scheduler {
	if config.TickInterval == 0 {
		config.TickInterval = 1 * time.Minute
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = 10 * time.Minute
	}
	return &Scheduler{
		sync:     syncSvc,
		settings: settings,
		config:   config,
		stopCh:   make(chan struct{}),
		lastRun:  make(map[SyncKind]time.Time),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.TickInterval)
	s.mu.Unlock()

	log.Printf("[Scheduler] Started - tick: %v, run timeout: %v",
		s.config.TickInterval, s.config.RunTimeout)

	go s.run()
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stopCh:
			log.Printf("[Scheduler] Stopped")
			return
		}
	}
}

// tick launches every sync kind whose settings interval has elapsed.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	st, err := s.settings.Current(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to read settings: %v", err)
		return
	}
	if !st.AutoSync {
		return
	}
	if !st.HasCredentials() {
		log.Printf("[Scheduler] autoSync enabled but credentials missing, skipping")
		return
	}

	intervals := map[SyncKind]int{
		SyncProducts: st.SyncInterval,
		SyncStock:    st.StockUpdateInterval,
		SyncOrders:   st.OrderCheckInterval,
	}

	now := time.Now()
	for kind, minutes := range intervals {
		if minutes <= 0 {
			continue
		}
		if last, ok := s.lastRun[kind]; ok && now.Sub(last) < time.Duration(minutes)*time.Minute {
			continue
		}
		// Stamp only completed runs; a failed or skipped launch retries on
		// the next tick instead of waiting out the full interval.
		if s.launch(ctx, kind) {
			s.lastRun[kind] = now
		}
	}
}

func (s *Scheduler) launch(ctx context.Context, kind SyncKind) bool {
	result, err := s.sync.Run(ctx, kind, SyncParams{})
	if errors.Is(err, ErrSyncInProgress) {
		log.Printf("[Scheduler] %s sync skipped: previous run still in flight", kind)
		return false
	}
	if err != nil {
		log.Printf("[Scheduler] %s sync failed: %v", kind, err)
		return false
	}
	if len(result.Failures) > 0 {
		log.Printf("[Scheduler] %s sync finished with %d record failure(s)", kind, len(result.Failures))
	}
	return true
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
