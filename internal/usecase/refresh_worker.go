package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
)

const defaultRefreshDelay = time.Second

// RefreshWorkerStatus describes the recent health of the refresh worker.
type RefreshWorkerStatus struct {
	Running             bool
	Processed           int
	Failed              int
	ConsecutiveFailures int
	LastPlayerID        int64
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
	Queued              int
}

// RefreshWorker drains the stats refresh queue one id at a time, pausing
// between ids so the external source never sees a burst.
type RefreshWorker struct {
	stats   *StatsService
	logger  *logging.Logger
	metrics *metrics.Recorder
	delay   time.Duration

	startMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	statusMu sync.RWMutex
	status   RefreshWorkerStatus
}

func NewRefreshWorker(stats *StatsService, logger *logging.Logger, recorder *metrics.Recorder, delay time.Duration) *RefreshWorker {
	if logger == nil {
		logger = logging.Default()
	}
	if delay <= 0 {
		delay = defaultRefreshDelay
	}
	return &RefreshWorker{
		stats:   stats,
		logger:  logger.Named("refresh_worker"),
		metrics: recorder,
		delay:   delay,
	}
}

// Start runs the worker until ctx is cancelled or Stop is called. Calling it
// on a running worker is a no-op.
func (w *RefreshWorker) Start(ctx context.Context) {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.setRunning(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.setRunning(false)

		w.logger.Info("refresh worker started", "delay_ms", w.delay.Milliseconds())
		for {
			playerID, ok := w.stats.queue.Next(ctx)
			if !ok {
				w.logger.Info("refresh worker stopped")
				return
			}
			w.process(ctx, playerID)
			if !w.wait(ctx) {
				w.logger.Info("refresh worker stopped")
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for the current refresh to return.
func (w *RefreshWorker) Stop() {
	w.startMu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.startMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
}

func (w *RefreshWorker) process(ctx context.Context, playerID int64) {
	defer func() {
		w.stats.queue.Done(playerID)
		w.metrics.SetQueueDepth(w.stats.queue.Len())
	}()

	start := time.Now()
	w.recordAttempt(playerID, start)

	_, err := w.stats.Refresh(ctx, playerID)
	w.metrics.ObserveRefreshJob(err)
	if err != nil {
		w.logger.WarnContext(ctx, "background refresh failed",
			"player_id", playerID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		w.recordFailure(err)
		return
	}

	w.recordSuccess(time.Now())
	w.logger.DebugContext(ctx, "background refresh completed", "player_id", playerID, "duration_ms", time.Since(start).Milliseconds())
}

func (w *RefreshWorker) wait(ctx context.Context) bool {
	timer := time.NewTimer(w.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *RefreshWorker) setRunning(running bool) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	w.status.Running = running
}

func (w *RefreshWorker) recordAttempt(playerID int64, at time.Time) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	w.status.LastPlayerID = playerID
	w.status.LastAttempt = at
}

func (w *RefreshWorker) recordSuccess(at time.Time) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	w.status.Processed++
	w.status.ConsecutiveFailures = 0
	w.status.LastError = ""
	w.status.LastSuccess = at
}

func (w *RefreshWorker) recordFailure(err error) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	w.status.Processed++
	w.status.Failed++
	w.status.ConsecutiveFailures++
	w.status.LastError = err.Error()
}

// Status returns a snapshot of the worker's recent health.
func (w *RefreshWorker) Status() RefreshWorkerStatus {
	w.statusMu.RLock()
	status := w.status
	w.statusMu.RUnlock()

	status.Queued = w.stats.PendingRefreshes()
	return status
}
